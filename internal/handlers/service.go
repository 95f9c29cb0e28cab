package handlers

import (
	"context"

	"procurement/internal/lifecycle"
	"procurement/models"
)

// TenderService is the tender lifecycle the handlers drive.
type TenderService interface {
	Create(ctx context.Context, req lifecycle.NewTender) (models.Tender, error)
	List(ctx context.Context, limit, offset int, serviceTypes []models.ServiceType) ([]models.Tender, error)
	ListByCreator(ctx context.Context, username string, limit, offset int) ([]models.Tender, error)
	Status(ctx context.Context, tenderID string) (models.TenderStatus, error)
	SetStatus(ctx context.Context, tenderID string, status models.TenderStatus, username string) (models.Tender, error)
	Edit(ctx context.Context, tenderID, username string, patch models.TenderPatch) (models.Tender, error)
	Rollback(ctx context.Context, tenderID string, version int, username string) (models.Tender, error)
}

type BidService interface {
	Create(ctx context.Context, req lifecycle.NewBid) (models.Bid, error)
	ListByAuthor(ctx context.Context, username string, limit, offset int) ([]models.Bid, error)
	ListForTender(ctx context.Context, tenderID string, limit, offset int) ([]models.Bid, error)
	Status(ctx context.Context, bidID string) (models.BidStatus, error)
	SetStatus(ctx context.Context, bidID string, status models.BidStatus, username string) (models.Bid, error)
	Edit(ctx context.Context, bidID, username string, patch models.BidPatch) (models.Bid, error)
	Rollback(ctx context.Context, bidID string, version int, username string) (models.Bid, error)
	SubmitDecision(ctx context.Context, bidID string, decision models.Decision, username string) (models.Bid, error)
}

type FeedbackService interface {
	Create(ctx context.Context, bidID, username, text string) (models.BidFeedback, error)
	ListReviews(ctx context.Context, tenderID, authorUsername, requesterUsername string, limit, offset int) ([]models.BidFeedback, error)
}

var (
	_ TenderService   = (*lifecycle.Tenders)(nil)
	_ BidService      = (*lifecycle.Bids)(nil)
	_ FeedbackService = (*lifecycle.Feedback)(nil)
)
