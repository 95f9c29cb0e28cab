package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"procurement/models"
)

// Feedback stores reviews left on bids and serves them to the tender side.
type Feedback struct {
	store    Store
	identity IdentityResolver
	log      *zap.Logger
	now      func() time.Time
}

func NewFeedback(store Store, identity IdentityResolver, log *zap.Logger) *Feedback {
	return &Feedback{store: store, identity: identity, log: log, now: time.Now}
}

// Create attaches feedback to a bid. Any existing employee may review any bid.
func (s *Feedback) Create(ctx context.Context, bidID, username, text string) (models.BidFeedback, error) {
	reviewer, err := s.identity.Resolve(ctx, username)
	if err != nil {
		return models.BidFeedback{}, fmt.Errorf("lifecycle.Feedback.Create: %w", err)
	}
	if _, err := s.store.GetBid(ctx, bidID); err != nil {
		return models.BidFeedback{}, fmt.Errorf("lifecycle.Feedback.Create: %w", err)
	}

	fb := models.BidFeedback{
		ID:        uuid.NewString(),
		BidID:     bidID,
		Username:  reviewer.Username,
		Feedback:  text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateBidFeedback(ctx, fb); err != nil {
		return models.BidFeedback{}, fmt.Errorf("lifecycle.Feedback.Create: %w", err)
	}

	s.log.Debug("bid feedback stored", zap.String("bid_id", bidID), zap.String("reviewer", reviewer.Username))
	return fb, nil
}

// ListReviews returns feedback left on the bids authorUsername submitted to
// the tender. The requester must be responsible for the tender's organization.
func (s *Feedback) ListReviews(ctx context.Context, tenderID, authorUsername, requesterUsername string, limit, offset int) ([]models.BidFeedback, error) {
	author, err := s.identity.Resolve(ctx, authorUsername)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: author: %w", err)
	}
	requester, err := s.identity.Resolve(ctx, requesterUsername)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: requester: %w", err)
	}
	tender, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: %w", err)
	}

	ok, err := HasResponsibilityFor(ctx, s.store, requester, tender.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: %w",
			forbidden("%s is not responsible for organization %s", requester.Username, tender.OrganizationID))
	}

	bids, err := s.store.GetBidsForTender(ctx, tender.ID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: %w", err)
	}
	var bidIDs []string
	for _, b := range bids {
		if b.AuthorID == author.ID {
			bidIDs = append(bidIDs, b.ID)
		}
	}
	if len(bidIDs) == 0 {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: %s has no bids on tender %s: %w", author.Username, tender.ID, models.ErrNotFound)
	}

	if limit <= 0 {
		return []models.BidFeedback{}, nil
	}
	reviews, err := s.store.GetBidFeedback(ctx, bidIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Feedback.ListReviews: %w", err)
	}
	return reviews, nil
}
