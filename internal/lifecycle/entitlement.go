package lifecycle

import (
	"context"
	"fmt"

	"procurement/models"
)

func IsCreatorOf(e models.Employee, t models.Tender) bool {
	return e.ID != "" && e.ID == t.CreatorID
}

func IsAuthorOf(e models.Employee, b models.Bid) bool {
	return e.ID != "" && e.ID == b.AuthorID
}

// HasResponsibilityFor reports whether e may act on behalf of organizationID.
func HasResponsibilityFor(ctx context.Context, r ResponsibilityReader, e models.Employee, organizationID string) (bool, error) {
	if organizationID == "" {
		return false, nil
	}
	ok, err := r.IsUserResponsibleForOrganization(ctx, e.ID, organizationID)
	if err != nil {
		return false, fmt.Errorf("lifecycle.HasResponsibilityFor: %w", err)
	}
	return ok, nil
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{models.ErrForbidden}, args...)...)
}
