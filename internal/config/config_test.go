package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should use defaults when there is no file", func(t *testing.T) {
		// when
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.NoError(t, err)
		assert.Equal(t, Defaults(), cfg)
	})

	t.Run("should let the file override defaults and env override the file", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := `
port: 9090
db:
  driver: sqlite
  path: /tmp/budget.db
budget:
  comparisonspan: 36
  basename: Today
google:
  spreadsheetid: sheet-1
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv("KAWAZANYO_BUDGET_COMPARISONSPAN", "12")
		t.Setenv("KAWAZANYO_GOOGLE_CLIENTID", "client")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "/tmp/budget.db", cfg.Database.Path)
		assert.Equal(t, 12, cfg.Budget.ComparisonSpan)
		assert.Equal(t, "Today", cfg.Budget.BaseName)
		assert.True(t, cfg.Budget.Seed)
		assert.Equal(t, "sheet-1", cfg.Google.SpreadsheetId)
		assert.Equal(t, "client", cfg.Google.ClientId)
		assert.Equal(t, "Projection", cfg.Google.SheetName)
	})

	t.Run("should fail on a malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "application.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))

		_, err := Load(path)

		assert.Error(t, err)
	})
}
