//go:build integration
// +build integration

package integration

import (
	"os"
	"testing"
)

// requireIntegrationEnv skips the test unless a database DSN is configured.
// Point RECI18N_TEST_DSN at a disposable schema; the suite creates and drops
// its own tables.
func requireIntegrationEnv(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("RECI18N_TEST_DSN") == "" {
		t.Skip("RECI18N_TEST_DSN not set")
	}
}

func testDSN() string {
	return os.Getenv("RECI18N_TEST_DSN")
}
