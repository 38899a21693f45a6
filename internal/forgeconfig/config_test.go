package forgeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	t.Setenv("CONTENTFORGE_WORKSPACE_BASE_DIR", "")
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err) // explicit path that doesn't exist is a hard error

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.Workspace.BaseDir)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Execution.DefaultMaxRetries)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Workspace: WorkspaceConfig{BaseDir: "./data"},
		Database:  DatabaseConfig{Driver: "oracle", DSN: "x"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeConcurrency(t *testing.T) {
	cfg := &Config{
		Workspace: WorkspaceConfig{BaseDir: "./data"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "x"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Execution: ExecutionConfig{Concurrency: -1},
	}
	assert.Error(t, cfg.Validate())
}

func TestWorkspacePathHelpers(t *testing.T) {
	w := WorkspaceConfig{BaseDir: "/data"}
	assert.Equal(t, "/data/builds/m1/blobs", w.BlobsDir("m1"))
	assert.Equal(t, "/data/builds/m1/events", w.EventsDir("m1"))
	assert.Equal(t, "/data/builds/m1/manifests", w.ManifestsDir("m1"))
	assert.Equal(t, "/data/builds/m1/current.json", w.CurrentPointerPath("m1"))
}
