package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogCSV = `product_id,product_name,price,activity_tags,location_tags,is_foreign
P1,沖繩浮潛三日遊,20000,浮潛;海灘,沖繩,true
P2,北海道溫泉五日遊,30000,溫泉;美食,北海道,true
P3,台東熱氣球,8000,熱氣球;親子,台東,false
`

const testUsersJSON = `{"user_analysis": {"alice": {"user_tags": {"溫泉": 2}, "products_viewed": ["P2"], "average_price": 25000}}}`

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "products.csv")
	usersPath := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalogCSV), 0o644))
	require.NoError(t, os.WriteFile(usersPath, []byte(testUsersJSON), 0o644))

	cfg := defaultConfig()
	cfg.Paths.Catalog = catalogPath
	cfg.Paths.Users = usersPath
	cfg.Paths.Pipelines = filepath.Join(dir, "absent_pipelines.json")
	cfg.Paths.History = filepath.Join(dir, "history.jsonl")
	cfg.Paths.ExportDir = dir
	return &cfg
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, a.rec.Catalog().Len())
	assert.Equal(t, []string{"alice"}, a.rec.UserIDs())

	recs := a.rec.GetRecommendations(context.Background(), "alice", 2)
	assert.NotEmpty(t, recs)
}

func TestNewAppMissingUsersStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.Users = filepath.Join(t.TempDir(), "none.json")

	a, err := newApp(cfg)
	require.NoError(t, err)
	assert.Empty(t, a.rec.UserIDs())
}

func TestNewAppMissingCatalogFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.Catalog = filepath.Join(t.TempDir(), "none.csv")

	_, err := newApp(cfg)
	assert.Error(t, err)
}

func TestTagClickPersistsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg)
	require.NoError(t, err)

	require.True(t, a.rec.UpdateTagWeight(context.Background(), "bob", "海灘"))
	require.NoError(t, a.rec.Persist(context.Background()))

	reloaded, err := loadUsers(cfg.Paths.SnapshotPath())
	require.NoError(t, err)
	p, ok := reloaded.Get("bob")
	require.True(t, ok)
	assert.Equal(t, 1, p.TagWeights["海灘"])
}
