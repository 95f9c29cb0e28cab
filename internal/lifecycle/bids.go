package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"procurement/internal/metrics"
	"procurement/models"
)

// Bids drives the bid lifecycle and the decision aggregation that can close
// the parent tender.
type Bids struct {
	store    Store
	identity IdentityResolver
	log      *zap.Logger
	now      func() time.Time
}

func NewBids(store Store, identity IdentityResolver, log *zap.Logger) *Bids {
	return &Bids{store: store, identity: identity, log: log, now: time.Now}
}

// NewBid describes a bid to create. An empty OrganizationID attributes the
// bid to the author personally.
type NewBid struct {
	Name            string
	Description     string
	TenderID        string
	OrganizationID  string
	CreatorUsername string
}

func (s *Bids) Create(ctx context.Context, req NewBid) (models.Bid, error) {
	author, err := s.identity.Resolve(ctx, req.CreatorUsername)
	if err != nil {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.Create: %w", err)
	}

	if _, err := s.store.GetTender(ctx, req.TenderID); err != nil {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.Create: %w", err)
	}

	var orgID *string
	if req.OrganizationID != "" {
		if _, err := s.store.GetOrganization(ctx, req.OrganizationID); err != nil {
			return models.Bid{}, fmt.Errorf("lifecycle.Bids.Create: organization %s: %w", req.OrganizationID, err)
		}
		id := req.OrganizationID
		orgID = &id
	}

	now := s.now().UTC()
	bid := models.Bid{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		Status:         models.BidCreated,
		TenderID:       req.TenderID,
		OrganizationID: orgID,
		AuthorID:       author.ID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateBid(ctx, bid); err != nil {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.Create: %w", err)
	}

	s.log.Debug("bid created", zap.String("bid_id", bid.ID), zap.String("tender_id", bid.TenderID))
	return bid, nil
}

func (s *Bids) ListByAuthor(ctx context.Context, username string, limit, offset int) ([]models.Bid, error) {
	author, err := s.identity.Resolve(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Bids.ListByAuthor: %w", err)
	}
	if limit <= 0 {
		return []models.Bid{}, nil
	}

	bids, err := s.store.GetBids(ctx, models.BidFilter{AuthorID: author.ID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Bids.ListByAuthor: %w", err)
	}
	return bids, nil
}

func (s *Bids) ListForTender(ctx context.Context, tenderID string, limit, offset int) ([]models.Bid, error) {
	if _, err := s.store.GetTender(ctx, tenderID); err != nil {
		return nil, fmt.Errorf("lifecycle.Bids.ListForTender: %w", err)
	}
	if limit <= 0 {
		return []models.Bid{}, nil
	}

	bids, err := s.store.GetBids(ctx, models.BidFilter{TenderID: tenderID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Bids.ListForTender: %w", err)
	}
	return bids, nil
}

func (s *Bids) Status(ctx context.Context, bidID string) (models.BidStatus, error) {
	b, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return "", fmt.Errorf("lifecycle.Bids.Status: %w", err)
	}
	return b.Status, nil
}

func (s *Bids) SetStatus(ctx context.Context, bidID string, status models.BidStatus, username string) (models.Bid, error) {
	if !status.Valid() {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.SetStatus: %w: unknown status %q", models.ErrInvalidArgument, status)
	}
	return s.mutate(ctx, "lifecycle.Bids.SetStatus", bidID, username, true, func(b *models.Bid) error {
		b.Status = status
		return nil
	})
}

func (s *Bids) Edit(ctx context.Context, bidID, username string, patch models.BidPatch) (models.Bid, error) {
	return s.mutate(ctx, "lifecycle.Bids.Edit", bidID, username, true, func(b *models.Bid) error {
		ApplyBidPatch(b, patch)
		return nil
	})
}

// Rollback accepts any existing employee as the actor, not only the author.
func (s *Bids) Rollback(ctx context.Context, bidID string, version int, username string) (models.Bid, error) {
	return s.mutate(ctx, "lifecycle.Bids.Rollback", bidID, username, false, func(b *models.Bid) error {
		return Rollback(b, version)
	})
}

// SubmitDecision records decision on the bid. The actor must be responsible
// for the bid's organization. An approval re-scans every bid of the tender and
// closes the tender once all of them are approved.
func (s *Bids) SubmitDecision(ctx context.Context, bidID string, decision models.Decision, username string) (models.Bid, error) {
	if !decision.Valid() {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.SubmitDecision: %w: unknown decision %q", models.ErrInvalidArgument, decision)
	}

	actor, err := s.identity.Resolve(ctx, username)
	if err != nil {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.SubmitDecision: %w", err)
	}

	var (
		out    models.Bid
		closed bool
	)
	err = s.store.InTx(ctx, func(r Repo) error {
		tender, bid, err := lockBid(ctx, r, bidID)
		if err != nil {
			return err
		}

		if bid.OrganizationID == nil {
			return forbidden("bid %s has no organization to decide for", bid.ID)
		}
		ok, err := HasResponsibilityFor(ctx, r, actor, *bid.OrganizationID)
		if err != nil {
			return err
		}
		if !ok {
			return forbidden("%s is not responsible for organization %s", actor.Username, *bid.OrganizationID)
		}

		now := s.now().UTC()
		bid.Status = decision.BidStatus()
		bid.UpdatedAt = now
		if err := r.UpdateBid(ctx, bid); err != nil {
			return err
		}
		out = bid

		if decision != models.DecisionApproved {
			return nil
		}

		siblings, err := r.GetBidsForTender(ctx, tender.ID)
		if err != nil {
			return err
		}
		if !allApproved(siblings, bid) {
			return nil
		}

		tender.Status = models.TenderClosed
		tender.UpdatedAt = now
		if err := r.UpdateTender(ctx, tender); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("lifecycle.Bids.SubmitDecision: %w", err)
	}

	metrics.ObserveDecision(decision)
	s.log.Info("bid decision recorded",
		zap.String("bid_id", out.ID),
		zap.String("decision", string(decision)),
		zap.String("actor", actor.Username),
	)
	if closed {
		metrics.TendersClosed.Inc()
		s.log.Info("tender closed", zap.String("tender_id", out.TenderID))
	}
	return out, nil
}

// allApproved reports whether every bid is approved, taking current as the
// freshest copy of its own row.
func allApproved(bids []models.Bid, current models.Bid) bool {
	seen := false
	for _, b := range bids {
		if b.ID == current.ID {
			b = current
			seen = true
		}
		if b.Status != models.BidApproved {
			return false
		}
	}
	return seen || current.Status == models.BidApproved
}

// mutate locks the bid's tender and then the bid, optionally checks
// authorship, applies the change and persists it in one transaction.
func (s *Bids) mutate(ctx context.Context, op, bidID, username string, authorOnly bool, apply func(b *models.Bid) error) (models.Bid, error) {
	actor, err := s.identity.Resolve(ctx, username)
	if err != nil {
		return models.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Bid
	err = s.store.InTx(ctx, func(r Repo) error {
		_, b, err := lockBid(ctx, r, bidID)
		if err != nil {
			return err
		}
		if authorOnly && !IsAuthorOf(actor, b) {
			return forbidden("%s is not the author of bid %s", actor.Username, b.ID)
		}
		if err := apply(&b); err != nil {
			return err
		}
		b.UpdatedAt = s.now().UTC()
		if err := r.UpdateBid(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// lockBid takes the tender row lock before the bid row lock so that all
// writers touching bids of one tender serialize in the same order.
func lockBid(ctx context.Context, r Repo, bidID string) (models.Tender, models.Bid, error) {
	b, err := r.GetBid(ctx, bidID)
	if err != nil {
		return models.Tender{}, models.Bid{}, err
	}
	t, err := r.GetTenderForUpdate(ctx, b.TenderID)
	if err != nil {
		return models.Tender{}, models.Bid{}, err
	}
	b, err = r.GetBidForUpdate(ctx, bidID)
	if err != nil {
		return models.Tender{}, models.Bid{}, err
	}
	return t, b, nil
}
