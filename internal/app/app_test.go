package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"procurement/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestAppServesAndShutsDown(t *testing.T) {
	seedFile := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`{"employees":[{"username":"alice"}]}`), 0o600))

	cfg := &config.Config{
		ServerAddress:   freeAddr(t),
		StorageDriver:   config.DriverMemory,
		SeedFile:        seedFile,
		ShutdownTimeout: time.Second,
		RateLimitConfig: config.RateLimitConfig{RPS: 100, Burst: 100},
	}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	url := fmt.Sprintf("http://%s/api/ping", cfg.ServerAddress)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", cfg.ServerAddress))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not shut down")
	}
}

func TestNewApp_BadSeed(t *testing.T) {
	cfg := &config.Config{
		StorageDriver: config.DriverMemory,
		SeedFile:      filepath.Join(t.TempDir(), "missing.json"),
	}
	_, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
