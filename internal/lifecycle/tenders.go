package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"procurement/models"
)

// Tenders drives the tender lifecycle. Only a tender's creator may change it.
type Tenders struct {
	store    Store
	identity IdentityResolver
	log      *zap.Logger
	now      func() time.Time
}

func NewTenders(store Store, identity IdentityResolver, log *zap.Logger) *Tenders {
	return &Tenders{store: store, identity: identity, log: log, now: time.Now}
}

type NewTender struct {
	Name            string
	Description     string
	OrganizationID  string
	ServiceType     models.ServiceType
	CreatorUsername string
}

func (s *Tenders) Create(ctx context.Context, req NewTender) (models.Tender, error) {
	creator, err := s.identity.Resolve(ctx, req.CreatorUsername)
	if err != nil {
		return models.Tender{}, fmt.Errorf("lifecycle.Tenders.Create: %w", err)
	}

	if _, err := s.store.GetOrganization(ctx, req.OrganizationID); err != nil {
		return models.Tender{}, fmt.Errorf("lifecycle.Tenders.Create: organization %s: %w", req.OrganizationID, err)
	}

	now := s.now().UTC()
	tender := models.Tender{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		ServiceType:    req.ServiceType,
		Status:         models.TenderCreated,
		OrganizationID: req.OrganizationID,
		CreatorID:      creator.ID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTender(ctx, tender); err != nil {
		return models.Tender{}, fmt.Errorf("lifecycle.Tenders.Create: %w", err)
	}

	s.log.Debug("tender created", zap.String("tender_id", tender.ID), zap.String("creator", creator.Username))
	return tender, nil
}

// List returns tenders ordered by name, optionally restricted to serviceTypes.
func (s *Tenders) List(ctx context.Context, limit, offset int, serviceTypes []models.ServiceType) ([]models.Tender, error) {
	if limit <= 0 {
		return []models.Tender{}, nil
	}
	tenders, err := s.store.GetTenders(ctx, models.TenderFilter{
		ServiceTypes: serviceTypes,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Tenders.List: %w", err)
	}
	return tenders, nil
}

// ListByCreator returns the tenders authored by username. An empty page is
// reported as models.ErrNotFound, the same as an unknown user.
func (s *Tenders) ListByCreator(ctx context.Context, username string, limit, offset int) ([]models.Tender, error) {
	creator, err := s.identity.Resolve(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Tenders.ListByCreator: %w", err)
	}

	var tenders []models.Tender
	if limit > 0 {
		tenders, err = s.store.GetTenders(ctx, models.TenderFilter{
			CreatorID: creator.ID,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return nil, fmt.Errorf("lifecycle.Tenders.ListByCreator: %w", err)
		}
	}
	if len(tenders) == 0 {
		return nil, fmt.Errorf("lifecycle.Tenders.ListByCreator: no tenders for %q: %w", username, models.ErrNotFound)
	}
	return tenders, nil
}

// Status is public and needs no caller identity.
func (s *Tenders) Status(ctx context.Context, tenderID string) (models.TenderStatus, error) {
	t, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		return "", fmt.Errorf("lifecycle.Tenders.Status: %w", err)
	}
	return t.Status, nil
}

// SetStatus overwrites the status; no transition order is enforced.
func (s *Tenders) SetStatus(ctx context.Context, tenderID string, status models.TenderStatus, username string) (models.Tender, error) {
	if !status.Valid() {
		return models.Tender{}, fmt.Errorf("lifecycle.Tenders.SetStatus: %w: unknown status %q", models.ErrInvalidArgument, status)
	}
	return s.mutate(ctx, "lifecycle.Tenders.SetStatus", tenderID, username, func(t *models.Tender) error {
		t.Status = status
		return nil
	})
}

func (s *Tenders) Edit(ctx context.Context, tenderID, username string, patch models.TenderPatch) (models.Tender, error) {
	if patch.ServiceType != nil && *patch.ServiceType != "" && !patch.ServiceType.Valid() {
		return models.Tender{}, fmt.Errorf("lifecycle.Tenders.Edit: %w: unknown service type %q", models.ErrInvalidArgument, *patch.ServiceType)
	}
	return s.mutate(ctx, "lifecycle.Tenders.Edit", tenderID, username, func(t *models.Tender) error {
		ApplyTenderPatch(t, patch)
		return nil
	})
}

func (s *Tenders) Rollback(ctx context.Context, tenderID string, version int, username string) (models.Tender, error) {
	return s.mutate(ctx, "lifecycle.Tenders.Rollback", tenderID, username, func(t *models.Tender) error {
		return Rollback(t, version)
	})
}

// mutate runs the creator check and apply inside one transaction with the
// tender row locked.
func (s *Tenders) mutate(ctx context.Context, op, tenderID, username string, apply func(t *models.Tender) error) (models.Tender, error) {
	actor, err := s.identity.Resolve(ctx, username)
	if err != nil {
		return models.Tender{}, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Tender
	err = s.store.InTx(ctx, func(r Repo) error {
		t, err := r.GetTenderForUpdate(ctx, tenderID)
		if err != nil {
			return err
		}
		if !IsCreatorOf(actor, t) {
			return forbidden("%s is not the creator of tender %s", actor.Username, t.ID)
		}
		if err := apply(&t); err != nil {
			return err
		}
		t.UpdatedAt = s.now().UTC()
		if err := r.UpdateTender(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return models.Tender{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
