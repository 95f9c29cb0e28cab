package lifecycle

import (
	"fmt"

	"procurement/models"
)

// Versioned is a record carrying a monotonic version counter.
type Versioned interface {
	GetVersion() int
	SetVersion(v int)
}

// Rollback moves the version counter back to target. Only the counter moves;
// field values are not restored.
func Rollback(v Versioned, target int) error {
	current := v.GetVersion()
	if target < 1 || target >= current {
		return fmt.Errorf("%w: rollback target %d must be in [1, %d)", models.ErrInvalidArgument, target, current)
	}
	v.SetVersion(target)
	return nil
}

func overwrite(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

// ApplyTenderPatch merges non-empty patch fields into t. A patched version is
// taken only when it moves the counter forward; rollback is the only way back.
func ApplyTenderPatch(t *models.Tender, p models.TenderPatch) {
	overwrite(&t.Name, p.Name)
	overwrite(&t.Description, p.Description)
	if p.ServiceType != nil && *p.ServiceType != "" {
		t.ServiceType = *p.ServiceType
	}
	if p.Version != nil && *p.Version > t.Version {
		t.Version = *p.Version
	}
}

func ApplyBidPatch(b *models.Bid, p models.BidPatch) {
	overwrite(&b.Name, p.Name)
	overwrite(&b.Description, p.Description)
}
