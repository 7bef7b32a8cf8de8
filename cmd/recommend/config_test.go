package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_recommend/internal/scoring"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(configPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Empty(t, cfg.Server.AdminToken)
	assert.Equal(t, 6, cfg.Recommend.TopN)
	assert.Equal(t, scoring.DefaultWeights(), cfg.Recommend.Weights)
	assert.Equal(t, "@every 10m", cfg.Jobs.SnapshotCron)
	assert.Equal(t, cfg.Paths.Users, cfg.Paths.SnapshotPath())
}

func TestLoadConfigLayering(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
  debug: true
paths:
  catalog: /srv/products.csv
  snapshot: /srv/users_snapshot.json
recommend:
  top_n: 10
  weights:
    content: 0.5
    collaborative: 0.2
    tag_matching: 0.3
  tag_synonyms:
    - "溫泉:泡湯"
jobs:
  watch_catalog: true
`)
	t.Setenv("TRAVEL_REC_SERVER__PORT", "9100")
	t.Setenv("TRAVEL_REC_SERVER__ADMIN_TOKEN", "tok")
	t.Setenv("TRAVEL_REC_RECOMMEND__TAG_SYNONYMS", "海灘:沙灘, 美食:小吃")

	cfg, err := LoadConfig(path, map[string]interface{}{"paths.catalog": "/cli/products.csv"})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "env overrides file")
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "tok", cfg.Server.AdminToken)
	assert.Equal(t, "/cli/products.csv", cfg.Paths.Catalog, "flags override everything")
	assert.Equal(t, "/srv/users_snapshot.json", cfg.Paths.SnapshotPath())
	assert.Equal(t, 10, cfg.Recommend.TopN)
	assert.Equal(t, 0.5, cfg.Recommend.Weights.Content)
	assert.True(t, cfg.Jobs.WatchCatalog)

	pairs, err := cfg.Recommend.synonymPairs()
	require.NoError(t, err)
	assert.Equal(t, []scoring.SynonymPair{{"海灘", "沙灘"}, {"美食", "小吃"}}, pairs)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative weight", "recommend:\n  weights:\n    content: -1\n"},
		{"all weights zero", "recommend:\n  weights:\n    content: 0\n    collaborative: 0\n    tag_matching: 0\n"},
		{"top_n out of range", "recommend:\n  top_n: 0\n"},
		{"bad log format", "server:\n  log_format: xml\n"},
		{"bad synonym", "recommend:\n  tag_synonyms: [\"溫泉\"]\n"},
		{"max_df above one", "recommend:\n  max_df: 1.5\n"},
		{"zero fuzzy discount", "recommend:\n  fuzzy_discount: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.yaml), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "server.port", envTransformFunc("TRAVEL_REC_SERVER__PORT"))
	assert.Equal(t, "jobs.history_retention_days", envTransformFunc("TRAVEL_REC_JOBS__HISTORY_RETENTION_DAYS"))
	assert.Equal(t, "", envTransformFunc("TRAVEL_REC_CONFIG"))
}
