package models

import (
	"encoding/json"
	"time"
)

type OrganizationType string

const (
	OrganizationIE  OrganizationType = "IE"
	OrganizationLLC OrganizationType = "LLC"
	OrganizationJSC OrganizationType = "JSC"
)

func (t OrganizationType) Valid() bool {
	switch t {
	case OrganizationIE, OrganizationLLC, OrganizationJSC:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceConstruction ServiceType = "Construction"
	ServiceDelivery     ServiceType = "Delivery"
	ServiceManufacture  ServiceType = "Manufacture"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceConstruction, ServiceDelivery, ServiceManufacture:
		return true
	}
	return false
}

type TenderStatus string

const (
	TenderCreated   TenderStatus = "Created"
	TenderPublished TenderStatus = "Published"
	TenderClosed    TenderStatus = "Closed"
)

func (s TenderStatus) Valid() bool {
	switch s {
	case TenderCreated, TenderPublished, TenderClosed:
		return true
	}
	return false
}

type BidStatus string

const (
	BidCreated   BidStatus = "Created"
	BidPublished BidStatus = "Published"
	BidCanceled  BidStatus = "Canceled"
	BidApproved  BidStatus = "Approved"
	BidRejected  BidStatus = "Rejected"
)

func (s BidStatus) Valid() bool {
	switch s {
	case BidCreated, BidPublished, BidCanceled, BidApproved, BidRejected:
		return true
	}
	return false
}

// Decision is the outcome a responsible employee records against a bid.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// BidStatus returns the bid status a decision puts the bid into.
func (d Decision) BidStatus() BidStatus {
	return BidStatus(d)
}

type AuthorType string

const (
	AuthorOrganization AuthorType = "Organization"
	AuthorUser         AuthorType = "User"
)

// Employee is a user known to the platform, identified by username.
type Employee struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// Organization publishes tenders and may submit bids.
type Organization struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description"`
	Type        OrganizationType `db:"type" json:"type"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `db:"updated_at" json:"-"`
}

// OrganizationResponsible grants an employee authority to act for an organization.
type OrganizationResponsible struct {
	OrganizationID string `db:"organization_id" json:"organizationId"`
	UserID         string `db:"user_id" json:"userId"`
}

// Tender is a procurement request owned by its creator.
type Tender struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Description    string       `db:"description" json:"description"`
	ServiceType    ServiceType  `db:"service_type" json:"serviceType"`
	Status         TenderStatus `db:"status" json:"status"`
	OrganizationID string       `db:"organization_id" json:"organizationId"`
	CreatorID      string       `db:"creator_id" json:"-"`
	Version        int          `db:"version" json:"version"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"-"`
}

func (t *Tender) GetVersion() int  { return t.Version }
func (t *Tender) SetVersion(v int) { t.Version = v }

// Bid is an offer against a tender, made by a user or on behalf of an organization.
type Bid struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Status         BidStatus `db:"status" json:"status"`
	TenderID       string    `db:"tender_id" json:"tenderId"`
	OrganizationID *string   `db:"organization_id" json:"organizationId,omitempty"`
	AuthorID       string    `db:"author_id" json:"authorId"`
	Version        int       `db:"version" json:"version"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"-"`
}

func (b *Bid) GetVersion() int  { return b.Version }
func (b *Bid) SetVersion(v int) { b.Version = v }

// AuthorType is derived from the organization reference and never stored.
func (b Bid) AuthorType() AuthorType {
	if b.OrganizationID != nil {
		return AuthorOrganization
	}
	return AuthorUser
}

func (b Bid) MarshalJSON() ([]byte, error) {
	type bid Bid
	return json.Marshal(struct {
		bid
		AuthorType AuthorType `json:"authorType"`
	}{bid: bid(b), AuthorType: b.AuthorType()})
}

// BidFeedback is a review left on a bid.
type BidFeedback struct {
	ID        string    `db:"id" json:"id"`
	BidID     string    `db:"bid_id" json:"bidId"`
	Username  string    `db:"username" json:"username"`
	Feedback  string    `db:"feedback" json:"description"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// TenderPatch carries the fields of a partial tender edit. Nil and empty
// values leave the stored field untouched.
type TenderPatch struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	ServiceType *ServiceType `json:"serviceType"`
	Version     *int         `json:"version"`
}

type BidPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type TenderFilter struct {
	ServiceTypes []ServiceType
	CreatorID    string
	Limit        int
	Offset       int
}

// BidFilter selects bids by author or tender; exactly one is expected to be set.
type BidFilter struct {
	AuthorID string
	TenderID string
	Limit    int
	Offset   int
}

// Seed is the bootstrap data set of employees and organizations.
type Seed struct {
	Employees        []Employee                `json:"employees"`
	Organizations    []Organization            `json:"organizations"`
	Responsibilities []OrganizationResponsible `json:"responsibilities"`
}
