package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/pkg/config"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseValidDocument(t *testing.T) {
	t.Parallel()

	data := []byte(`
trees:
  - path: /
    tree: demo
authentication:
  authenticator: dictionary
  args:
    users:
      alice: secret
  allow_anonymous_access: true
  secret_key: swordfish
  access_token_max_age: 3600
server:
  host: 0.0.0.0
  port: 9000
allow_origins:
  - https://example.com
media_types:
  array:
    application/x-custom: array/application/json
file_extensions:
  table: text/csv
`)

	cfg, err := config.Parse(data, "example.yml")
	require.NoError(t, err)

	require.Len(t, cfg.Trees, 1)
	assert.Equal(t, "/", cfg.Trees[0].Path)
	assert.Equal(t, "demo", cfg.Trees[0].Tree)
	assert.Equal(t, "example.yml", cfg.Trees[0].Source)

	require.NotNil(t, cfg.Authentication)
	assert.Equal(t, "dictionary", cfg.Authentication.Authenticator)
	assert.True(t, cfg.Authentication.AllowAnonymousAccess)
	assert.Equal(t, "swordfish", cfg.Authentication.SecretKey)
	assert.Equal(t, 3600, cfg.Authentication.AccessTokenMaxAge)

	require.NotNil(t, cfg.Server)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)

	assert.Equal(t, []string{"https://example.com"}, cfg.AllowOrigins)
	assert.Equal(t, "array/application/json", cfg.MediaTypes["array"]["application/x-custom"])
	assert.Equal(t, "text/csv", cfg.FileExtensions["table"])
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "malformed yaml",
			content: "trees: [",
		},
		{
			name:    "tree without a specifier",
			content: "trees:\n  - path: /\n",
		},
		{
			name:    "unknown top-level section",
			content: "catalogs:\n  - path: /\n",
		},
		{
			name:    "port is not an integer",
			content: "trees:\n  - path: /\n    tree: demo\nserver:\n  port: http\n",
		},
		{
			name:    "unknown structure family",
			content: "media_types:\n  image:\n    image/png: array/application/json\n",
		},
		{
			name:    "allow_origins is not a list",
			content: "allow_origins: https://example.com\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(tt.content), "broken.yml")
			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "broken.yml", verr.File)
			assert.ErrorContains(t, err, "broken.yml")
		})
	}
}

func TestLoadSingleFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), "config.yml", "trees:\n  - path: /\n    tree: demo\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Trees, 1)
	assert.Equal(t, path, cfg.Trees[0].Source)
}

func TestLoadMergesDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "01-trees.yml", "trees:\n  - path: /a\n    tree: demo\n")
	writeConfig(t, dir, "02-more.yaml", "trees:\n  - path: /b\n    tree: demo\nallow_origins:\n  - https://one.test\n")
	writeConfig(t, dir, ".hidden.yml", "server:\n  port: 1\n")
	writeConfig(t, dir, "notes.txt", "not yaml at all {{{")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.Len(t, cfg.Trees, 2)
	assert.Equal(t, "/a", cfg.Trees[0].Path)
	assert.Equal(t, "/b", cfg.Trees[1].Path)
	assert.Nil(t, cfg.Server)
	assert.Equal(t, []string{"https://one.test"}, cfg.AllowOrigins)
}

func TestLoadNamesOffendingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "good.yml", "trees:\n  - path: /\n    tree: demo\n")
	writeConfig(t, dir, "wrong.yml", "trees:\n  - path: /\n")

	_, err := config.Load(dir)
	require.ErrorContains(t, err, "wrong.yml")

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, filepath.Join(dir, "wrong.yml"), verr.File)
}

func TestLoadMissingPath(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.ErrorContains(t, err, "failed to read config path")
}
