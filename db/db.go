package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"procurement/internal/lifecycle"
	"procurement/models"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

type Storage struct {
	db *sqlx.DB
	q  queryer
}

var (
	_ lifecycle.Store  = (*Storage)(nil)
	_ lifecycle.Seeder = (*Storage)(nil)
)

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db, q: db}
}

// InTx runs fn against a Storage bound to a single transaction. The
// transaction is committed only when fn returns nil.
func (s *Storage) InTx(ctx context.Context, fn func(r lifecycle.Repo) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.Storage.InTx: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&Storage{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db.Storage.InTx: commit: %w", err)
	}
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

// Employees

const employeeColumns = `id, username, first_name, last_name, created_at, updated_at`

func (s *Storage) CreateEmployee(ctx context.Context, e *models.Employee) error {
	query := `
        INSERT INTO employee (id, username, first_name, last_name)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4)
        RETURNING id, created_at, updated_at`
	return s.q.GetContext(ctx, e, query, e.ID, e.Username, e.FirstName, e.LastName)
}

func (s *Storage) GetEmployeeByUsername(ctx context.Context, username string) (models.Employee, error) {
	var e models.Employee
	query := `SELECT ` + employeeColumns + ` FROM employee WHERE username = $1`
	if err := s.q.GetContext(ctx, &e, query, username); err != nil {
		return models.Employee{}, notFound(err, "employee", username)
	}
	return e, nil
}

// Organizations

func (s *Storage) CreateOrganization(ctx context.Context, o *models.Organization) error {
	query := `
        INSERT INTO organization (id, name, description, type)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4)
        RETURNING id, created_at, updated_at`
	return s.q.GetContext(ctx, o, query, o.ID, o.Name, o.Description, o.Type)
}

func (s *Storage) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	var o models.Organization
	query := `SELECT id, name, description, type, created_at, updated_at FROM organization WHERE id = $1`
	if err := s.q.GetContext(ctx, &o, query, id); err != nil {
		return models.Organization{}, notFound(err, "organization", id)
	}
	return o, nil
}

func (s *Storage) AddOrganizationResponsible(ctx context.Context, organizationID, userID string) error {
	query := `
        INSERT INTO organization_responsible (organization_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (organization_id, user_id) DO NOTHING`
	_, err := s.q.ExecContext(ctx, query, organizationID, userID)
	return err
}

func (s *Storage) IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM organization_responsible WHERE user_id = $1 AND organization_id = $2`
	if err := s.q.GetContext(ctx, &count, query, userID, organizationID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Tenders

const tenderColumns = `id, name, description, service_type, status, organization_id, creator_id, version, created_at, updated_at`

func (s *Storage) CreateTender(ctx context.Context, t models.Tender) error {
	query := `
        INSERT INTO tender
            (id, name, description, service_type, status, organization_id, creator_id, version, created_at, updated_at)
        VALUES
            (:id, :name, :description, :service_type, :status, :organization_id, :creator_id, :version, :created_at, :updated_at)`
	_, err := s.q.NamedExecContext(ctx, query, t)
	return err
}

func (s *Storage) GetTender(ctx context.Context, id string) (models.Tender, error) {
	return s.getTender(ctx, `SELECT `+tenderColumns+` FROM tender WHERE id = $1`, id)
}

func (s *Storage) GetTenderForUpdate(ctx context.Context, id string) (models.Tender, error) {
	return s.getTender(ctx, `SELECT `+tenderColumns+` FROM tender WHERE id = $1 FOR UPDATE`, id)
}

func (s *Storage) getTender(ctx context.Context, query, id string) (models.Tender, error) {
	var t models.Tender
	if err := s.q.GetContext(ctx, &t, query, id); err != nil {
		return models.Tender{}, notFound(err, "tender", id)
	}
	return t, nil
}

func (s *Storage) UpdateTender(ctx context.Context, t models.Tender) error {
	query := `
        UPDATE tender
        SET name = :name, description = :description, service_type = :service_type,
            status = :status, version = :version, updated_at = :updated_at
        WHERE id = :id`
	res, err := s.q.NamedExecContext(ctx, query, t)
	if err != nil {
		return err
	}
	return expectRow(res, "tender", t.ID)
}

// GetTenders orders by name with id as a tie breaker so pages are stable.
func (s *Storage) GetTenders(ctx context.Context, f models.TenderFilter) ([]models.Tender, error) {
	serviceTypes := make([]string, len(f.ServiceTypes))
	for i, st := range f.ServiceTypes {
		serviceTypes[i] = string(st)
	}
	query := `
        SELECT ` + tenderColumns + `
        FROM tender
        WHERE (cardinality($1::text[]) = 0 OR service_type::text = ANY($1))
          AND ($2::text = '' OR creator_id::text = $2)
        ORDER BY name ASC, id ASC
        LIMIT $3 OFFSET $4`
	tenders := []models.Tender{}
	if err := s.q.SelectContext(ctx, &tenders, query, pq.Array(serviceTypes), f.CreatorID, f.Limit, f.Offset); err != nil {
		return nil, err
	}
	return tenders, nil
}

// Bids

const bidColumns = `id, name, description, status, tender_id, organization_id, author_id, version, created_at, updated_at`

func (s *Storage) CreateBid(ctx context.Context, b models.Bid) error {
	query := `
        INSERT INTO bid
            (id, name, description, status, tender_id, organization_id, author_id, version, created_at, updated_at)
        VALUES
            (:id, :name, :description, :status, :tender_id, :organization_id, :author_id, :version, :created_at, :updated_at)`
	_, err := s.q.NamedExecContext(ctx, query, b)
	return err
}

func (s *Storage) GetBid(ctx context.Context, id string) (models.Bid, error) {
	return s.getBid(ctx, `SELECT `+bidColumns+` FROM bid WHERE id = $1`, id)
}

func (s *Storage) GetBidForUpdate(ctx context.Context, id string) (models.Bid, error) {
	return s.getBid(ctx, `SELECT `+bidColumns+` FROM bid WHERE id = $1 FOR UPDATE`, id)
}

func (s *Storage) getBid(ctx context.Context, query, id string) (models.Bid, error) {
	var b models.Bid
	if err := s.q.GetContext(ctx, &b, query, id); err != nil {
		return models.Bid{}, notFound(err, "bid", id)
	}
	return b, nil
}

func (s *Storage) UpdateBid(ctx context.Context, b models.Bid) error {
	query := `
        UPDATE bid
        SET name = :name, description = :description, status = :status,
            version = :version, updated_at = :updated_at
        WHERE id = :id`
	res, err := s.q.NamedExecContext(ctx, query, b)
	if err != nil {
		return err
	}
	return expectRow(res, "bid", b.ID)
}

func (s *Storage) GetBids(ctx context.Context, f models.BidFilter) ([]models.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bid
        WHERE ($1::text = '' OR author_id::text = $1)
          AND ($2::text = '' OR tender_id::text = $2)
        ORDER BY created_at ASC, id ASC
        LIMIT $3 OFFSET $4`
	bids := []models.Bid{}
	if err := s.q.SelectContext(ctx, &bids, query, f.AuthorID, f.TenderID, f.Limit, f.Offset); err != nil {
		return nil, err
	}
	return bids, nil
}

func (s *Storage) GetBidsForTender(ctx context.Context, tenderID string) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE tender_id = $1 ORDER BY created_at ASC, id ASC`
	bids := []models.Bid{}
	if err := s.q.SelectContext(ctx, &bids, query, tenderID); err != nil {
		return nil, err
	}
	return bids, nil
}

// Feedback

func (s *Storage) CreateBidFeedback(ctx context.Context, fb models.BidFeedback) error {
	query := `
        INSERT INTO bid_feedback (id, bid_id, username, feedback, created_at)
        VALUES (:id, :bid_id, :username, :feedback, :created_at)`
	_, err := s.q.NamedExecContext(ctx, query, fb)
	return err
}

// GetBidFeedback pages in insertion order, tracked by the seq column.
func (s *Storage) GetBidFeedback(ctx context.Context, bidIDs []string, limit, offset int) ([]models.BidFeedback, error) {
	query := `
        SELECT id, bid_id, username, feedback, created_at
        FROM bid_feedback
        WHERE bid_id::text = ANY($1)
        ORDER BY seq ASC
        LIMIT $2 OFFSET $3`
	feedback := []models.BidFeedback{}
	if err := s.q.SelectContext(ctx, &feedback, query, pq.Array(bidIDs), limit, offset); err != nil {
		return nil, err
	}
	return feedback, nil
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return nil
}
