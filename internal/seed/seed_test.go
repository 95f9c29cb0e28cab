package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"procurement/internal/memstore"
	"procurement/models"
)

func TestLoadAndApply(t *testing.T) {
	orgID := uuid.NewString()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"employees": [{"username": "alice", "firstName": "Alice"}, {"username": "bob"}],
		"organizations": [{"id": "`+orgID+`", "name": "Acme", "type": "LLC"}],
		"responsibilities": [{"organizationId": "`+orgID+`", "userId": "alice"}]
	}`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Employees, 2)

	store := memstore.New()
	require.NoError(t, Apply(context.Background(), store, s, zap.NewNop()))

	alice, err := store.GetEmployeeByUsername(context.Background(), "alice")
	require.NoError(t, err)
	ok, err := store.IsUserResponsibleForOrganization(context.Background(), alice.ID, orgID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApply_RejectsUnknownOrganizationType(t *testing.T) {
	s := models.Seed{Organizations: []models.Organization{{Name: "Acme", Type: "LTD"}}}

	err := Apply(context.Background(), memstore.New(), s, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
