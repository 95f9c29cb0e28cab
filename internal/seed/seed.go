// Package seed loads the employees, organizations and responsibilities the
// API never creates itself.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"procurement/internal/lifecycle"
	"procurement/models"
)

func Load(path string) (models.Seed, error) {
	var s models.Seed
	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("seed.Load: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return s, fmt.Errorf("seed.Load: %s: %w", path, err)
	}
	return s, nil
}

// Apply writes s through dst. Responsibilities may name employees by
// username in place of an id.
func Apply(ctx context.Context, dst lifecycle.Seeder, s models.Seed, log *zap.Logger) error {
	byUsername := make(map[string]string, len(s.Employees))
	for i := range s.Employees {
		e := &s.Employees[i]
		if err := dst.CreateEmployee(ctx, e); err != nil {
			return fmt.Errorf("seed.Apply: employee %q: %w", e.Username, err)
		}
		byUsername[e.Username] = e.ID
	}

	for i := range s.Organizations {
		o := &s.Organizations[i]
		if !o.Type.Valid() {
			return fmt.Errorf("seed.Apply: organization %q: %w: type %q", o.Name, models.ErrInvalidArgument, o.Type)
		}
		if err := dst.CreateOrganization(ctx, o); err != nil {
			return fmt.Errorf("seed.Apply: organization %q: %w", o.Name, err)
		}
	}

	for _, r := range s.Responsibilities {
		userID := r.UserID
		if id, ok := byUsername[userID]; ok {
			userID = id
		}
		if err := dst.AddOrganizationResponsible(ctx, r.OrganizationID, userID); err != nil {
			return fmt.Errorf("seed.Apply: responsibility %s/%s: %w", r.OrganizationID, r.UserID, err)
		}
	}

	log.Info("seed applied",
		zap.Int("employees", len(s.Employees)),
		zap.Int("organizations", len(s.Organizations)),
		zap.Int("responsibilities", len(s.Responsibilities)),
	)
	return nil
}
