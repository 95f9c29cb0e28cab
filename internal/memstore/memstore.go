// Package memstore is an in-memory arena implementation of the lifecycle
// store. Records are kept in id-keyed maps and refer to each other by id only.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"procurement/internal/lifecycle"
	"procurement/models"
)

type responsibility struct {
	userID         string
	organizationID string
}

type state struct {
	employees      map[string]models.Employee
	usernames      map[string]string
	organizations  map[string]models.Organization
	responsibility map[responsibility]struct{}
	tenders        map[string]models.Tender
	bids           map[string]models.Bid
	bidOrder       []string
	feedback       []models.BidFeedback
}

// Store serializes every call and every transaction behind one mutex.
type Store struct {
	mu sync.Mutex
	st *state
}

var (
	_ lifecycle.Store  = (*Store)(nil)
	_ lifecycle.Seeder = (*Store)(nil)
)

func New() *Store {
	return &Store{st: &state{
		employees:      map[string]models.Employee{},
		usernames:      map[string]string{},
		organizations:  map[string]models.Organization{},
		responsibility: map[responsibility]struct{}{},
		tenders:        map[string]models.Tender{},
		bids:           map[string]models.Bid{},
	}}
}

// InTx runs fn with exclusive access to the store. Lifecycle operations finish
// all checks before their first write, so fn never leaves partial writes on
// a domain error.
func (s *Store) InTx(ctx context.Context, fn func(r lifecycle.Repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

//// Seeding

func (s *Store) CreateEmployee(ctx context.Context, e *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.st.usernames[e.Username]; taken {
		return fmt.Errorf("memstore.Store.CreateEmployee: username %q already exists", e.Username)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	s.st.employees[e.ID] = *e
	s.st.usernames[e.Username] = e.ID
	return nil
}

func (s *Store) CreateOrganization(ctx context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	s.st.organizations[o.ID] = *o
	return nil
}

func (s *Store) AddOrganizationResponsible(ctx context.Context, organizationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.organizations[organizationID]; !ok {
		return fmt.Errorf("memstore.Store.AddOrganizationResponsible: organization %s: %w", organizationID, models.ErrNotFound)
	}
	if _, ok := s.st.employees[userID]; !ok {
		return fmt.Errorf("memstore.Store.AddOrganizationResponsible: employee %s: %w", userID, models.ErrNotFound)
	}
	s.st.responsibility[responsibility{userID: userID, organizationID: organizationID}] = struct{}{}
	return nil
}

//// Locked Repo methods

func (s *Store) GetEmployeeByUsername(ctx context.Context, username string) (models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetEmployeeByUsername(ctx, username)
}

func (s *Store) IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.IsUserResponsibleForOrganization(ctx, userID, organizationID)
}

func (s *Store) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetOrganization(ctx, id)
}

func (s *Store) CreateTender(ctx context.Context, t models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateTender(ctx, t)
}

func (s *Store) GetTender(ctx context.Context, id string) (models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetTender(ctx, id)
}

func (s *Store) GetTenderForUpdate(ctx context.Context, id string) (models.Tender, error) {
	return s.GetTender(ctx, id)
}

func (s *Store) UpdateTender(ctx context.Context, t models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateTender(ctx, t)
}

func (s *Store) GetTenders(ctx context.Context, f models.TenderFilter) ([]models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetTenders(ctx, f)
}

func (s *Store) CreateBid(ctx context.Context, b models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateBid(ctx, b)
}

func (s *Store) GetBid(ctx context.Context, id string) (models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetBid(ctx, id)
}

func (s *Store) GetBidForUpdate(ctx context.Context, id string) (models.Bid, error) {
	return s.GetBid(ctx, id)
}

func (s *Store) UpdateBid(ctx context.Context, b models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateBid(ctx, b)
}

func (s *Store) GetBids(ctx context.Context, f models.BidFilter) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetBids(ctx, f)
}

func (s *Store) GetBidsForTender(ctx context.Context, tenderID string) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetBidsForTender(ctx, tenderID)
}

func (s *Store) CreateBidFeedback(ctx context.Context, fb models.BidFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateBidFeedback(ctx, fb)
}

func (s *Store) GetBidFeedback(ctx context.Context, bidIDs []string, limit, offset int) ([]models.BidFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetBidFeedback(ctx, bidIDs, limit, offset)
}

//// Unlocked state, handed out inside InTx

func (st *state) GetEmployeeByUsername(ctx context.Context, username string) (models.Employee, error) {
	id, ok := st.usernames[username]
	if !ok {
		return models.Employee{}, fmt.Errorf("memstore: employee %q: %w", username, models.ErrNotFound)
	}
	return st.employees[id], nil
}

func (st *state) IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	_, ok := st.responsibility[responsibility{userID: userID, organizationID: organizationID}]
	return ok, nil
}

func (st *state) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	o, ok := st.organizations[id]
	if !ok {
		return models.Organization{}, fmt.Errorf("memstore: organization %s: %w", id, models.ErrNotFound)
	}
	return o, nil
}

func (st *state) CreateTender(ctx context.Context, t models.Tender) error {
	if _, exists := st.tenders[t.ID]; exists {
		return fmt.Errorf("memstore: tender %s already exists", t.ID)
	}
	st.tenders[t.ID] = t
	return nil
}

func (st *state) GetTender(ctx context.Context, id string) (models.Tender, error) {
	t, ok := st.tenders[id]
	if !ok {
		return models.Tender{}, fmt.Errorf("memstore: tender %s: %w", id, models.ErrNotFound)
	}
	return t, nil
}

func (st *state) GetTenderForUpdate(ctx context.Context, id string) (models.Tender, error) {
	return st.GetTender(ctx, id)
}

func (st *state) UpdateTender(ctx context.Context, t models.Tender) error {
	if _, ok := st.tenders[t.ID]; !ok {
		return fmt.Errorf("memstore: tender %s: %w", t.ID, models.ErrNotFound)
	}
	st.tenders[t.ID] = t
	return nil
}

func (st *state) GetTenders(ctx context.Context, f models.TenderFilter) ([]models.Tender, error) {
	out := make([]models.Tender, 0, len(st.tenders))
	for _, t := range st.tenders {
		if f.CreatorID != "" && t.CreatorID != f.CreatorID {
			continue
		}
		if len(f.ServiceTypes) > 0 && !slices.Contains(f.ServiceTypes, t.ServiceType) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b models.Tender) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return page(out, f.Limit, f.Offset), nil
}

func (st *state) CreateBid(ctx context.Context, b models.Bid) error {
	if _, exists := st.bids[b.ID]; exists {
		return fmt.Errorf("memstore: bid %s already exists", b.ID)
	}
	if _, ok := st.tenders[b.TenderID]; !ok {
		return fmt.Errorf("memstore: tender %s: %w", b.TenderID, models.ErrNotFound)
	}
	st.bids[b.ID] = b
	st.bidOrder = append(st.bidOrder, b.ID)
	return nil
}

func (st *state) GetBid(ctx context.Context, id string) (models.Bid, error) {
	b, ok := st.bids[id]
	if !ok {
		return models.Bid{}, fmt.Errorf("memstore: bid %s: %w", id, models.ErrNotFound)
	}
	return b, nil
}

func (st *state) GetBidForUpdate(ctx context.Context, id string) (models.Bid, error) {
	return st.GetBid(ctx, id)
}

func (st *state) UpdateBid(ctx context.Context, b models.Bid) error {
	if _, ok := st.bids[b.ID]; !ok {
		return fmt.Errorf("memstore: bid %s: %w", b.ID, models.ErrNotFound)
	}
	st.bids[b.ID] = b
	return nil
}

// GetBids walks bids in creation order.
func (st *state) GetBids(ctx context.Context, f models.BidFilter) ([]models.Bid, error) {
	var out []models.Bid
	for _, id := range st.bidOrder {
		b := st.bids[id]
		if f.AuthorID != "" && b.AuthorID != f.AuthorID {
			continue
		}
		if f.TenderID != "" && b.TenderID != f.TenderID {
			continue
		}
		out = append(out, b)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (st *state) GetBidsForTender(ctx context.Context, tenderID string) ([]models.Bid, error) {
	var out []models.Bid
	for _, id := range st.bidOrder {
		if b := st.bids[id]; b.TenderID == tenderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (st *state) CreateBidFeedback(ctx context.Context, fb models.BidFeedback) error {
	if _, ok := st.bids[fb.BidID]; !ok {
		return fmt.Errorf("memstore: bid %s: %w", fb.BidID, models.ErrNotFound)
	}
	st.feedback = append(st.feedback, fb)
	return nil
}

func (st *state) GetBidFeedback(ctx context.Context, bidIDs []string, limit, offset int) ([]models.BidFeedback, error) {
	var out []models.BidFeedback
	for _, fb := range st.feedback {
		if slices.Contains(bidIDs, fb.BidID) {
			out = append(out, fb)
		}
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || offset >= len(items) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
