package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"procurement/models"
)

// IdentityResolver turns the caller-supplied username into an employee.
type IdentityResolver interface {
	Resolve(ctx context.Context, username string) (models.Employee, error)
}

// StoreResolver resolves identities against the employee table.
type StoreResolver struct {
	employees EmployeeReader
}

func NewResolver(employees EmployeeReader) *StoreResolver {
	return &StoreResolver{employees: employees}
}

func (r *StoreResolver) Resolve(ctx context.Context, username string) (models.Employee, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Employee{}, fmt.Errorf("lifecycle.StoreResolver.Resolve: empty username: %w", models.ErrNotFound)
	}

	e, err := r.employees.GetEmployeeByUsername(ctx, username)
	if err != nil {
		return models.Employee{}, fmt.Errorf("lifecycle.StoreResolver.Resolve: employee %q: %w", username, err)
	}
	return e, nil
}
