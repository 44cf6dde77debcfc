//go:build integration

package integration

import (
	"fmt"
	"os"
	"testing"

	"github.com/catalogsync/catalogsync/internal/config"
)

func pgSourceConfig(t *testing.T) *config.SourceConfig {
	t.Helper()
	var port int
	fmt.Sscanf(envOrDefault("CATALOGSYNC_TEST_PG_PORT", "25432"), "%d", &port)
	return &config.SourceConfig{
		Type:     "postgresql",
		Host:     envOrDefault("CATALOGSYNC_TEST_PG_HOST", "localhost"),
		Port:     port,
		Database: envOrDefault("CATALOGSYNC_TEST_PG_DATABASE", "catalogsync_test"),
		Schema:   "keyfacts_it",
		Username: envOrDefault("CATALOGSYNC_TEST_PG_USER", "postgres"),
		Password: envOrDefault("CATALOGSYNC_TEST_PG_PASSWORD", "postgres"),
	}
}

func mongoURI(t *testing.T) string {
	t.Helper()
	return envOrDefault("CATALOGSYNC_TEST_MONGO_URI", "mongodb://localhost:37017/?directConnection=true")
}

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("CATALOGSYNC_TEST_PG_HOST") == "" && os.Getenv("CATALOGSYNC_TEST_PG_PORT") == "" {
		t.Skip("skipping: CATALOGSYNC_TEST_PG_HOST/PORT not set")
	}
}

func skipIfNoMongo(t *testing.T) {
	t.Helper()
	if os.Getenv("CATALOGSYNC_TEST_MONGO_URI") == "" {
		t.Skip("skipping: CATALOGSYNC_TEST_MONGO_URI not set")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
