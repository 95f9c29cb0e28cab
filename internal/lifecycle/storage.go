package lifecycle

import (
	"context"

	"procurement/models"
)

// EmployeeReader looks employees up by username.
type EmployeeReader interface {
	GetEmployeeByUsername(ctx context.Context, username string) (models.Employee, error)
}

// ResponsibilityReader answers whether an employee acts for an organization.
type ResponsibilityReader interface {
	IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error)
}

// Repo is the set of storage operations the lifecycle runs against. Lookups
// of missing records return an error wrapping models.ErrNotFound.
type Repo interface {
	EmployeeReader
	ResponsibilityReader
	GetOrganization(ctx context.Context, id string) (models.Organization, error)

	CreateTender(ctx context.Context, tender models.Tender) error
	GetTender(ctx context.Context, tenderID string) (models.Tender, error)
	// GetTenderForUpdate reads the tender and holds it locked until the
	// surrounding transaction ends.
	GetTenderForUpdate(ctx context.Context, tenderID string) (models.Tender, error)
	UpdateTender(ctx context.Context, tender models.Tender) error
	GetTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error)

	CreateBid(ctx context.Context, bid models.Bid) error
	GetBid(ctx context.Context, bidID string) (models.Bid, error)
	GetBidForUpdate(ctx context.Context, bidID string) (models.Bid, error)
	UpdateBid(ctx context.Context, bid models.Bid) error
	GetBids(ctx context.Context, filter models.BidFilter) ([]models.Bid, error)
	// GetBidsForTender returns every bid of the tender, unpaginated.
	GetBidsForTender(ctx context.Context, tenderID string) ([]models.Bid, error)

	CreateBidFeedback(ctx context.Context, feedback models.BidFeedback) error
	// GetBidFeedback pages over feedback of the given bids in insertion order.
	GetBidFeedback(ctx context.Context, bidIDs []string, limit, offset int) ([]models.BidFeedback, error)
}

// Store is a Repo that can run a function atomically. Writes made through the
// Repo handed to fn are committed only when fn returns nil.
type Store interface {
	Repo
	InTx(ctx context.Context, fn func(r Repo) error) error
}

// Seeder bootstraps reference data the API itself never creates.
type Seeder interface {
	CreateEmployee(ctx context.Context, e *models.Employee) error
	CreateOrganization(ctx context.Context, o *models.Organization) error
	AddOrganizationResponsible(ctx context.Context, organizationID, userID string) error
}
