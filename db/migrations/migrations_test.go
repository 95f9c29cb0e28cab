package migrations

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEmbeddedMigrations(t *testing.T) {
	require.NoError(t, setup(zaptest.NewLogger(t)))

	ms, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, int64(1), ms[0].Version)
}

func TestRun(t *testing.T) {
	conn := os.Getenv("POSTGRES_CONN")
	if conn == "" {
		t.Skip("POSTGRES_CONN not set")
	}

	db, err := sql.Open("postgres", conn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zaptest.NewLogger(t)
	require.NoError(t, Run(db, log))
	// already applied migrations are a no-op
	require.NoError(t, Run(db, log))

	version, err := goose.GetDBVersion(db)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))

	for _, table := range []string{"employee", "organization", "organization_responsible", "tender", "bid", "bid_feedback"} {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}
