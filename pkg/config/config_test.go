package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"TABLE_NAME", "DYNAMO_REGION", "AWS_REGION", "DYNAMO_ENDPOINT",
		"LISTEN_ADDR", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
}

func chdirTemp(t *testing.T) string {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "greenhouse", cfg.TableName)
	assert.Equal(t, "eu-west-2", cfg.Region)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)
	t.Setenv("TABLE_NAME", "gh-test")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("DYNAMO_ENDPOINT", "http://localhost:8000")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://dash.example.com,")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "gh-test", cfg.TableName)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "http://localhost:8000", cfg.Endpoint)
	assert.Equal(t, []string{"http://localhost:3000", "https://dash.example.com"}, cfg.AllowedOrigins)

	t.Setenv("DYNAMO_REGION", "eu-central-1")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Region)
}

func TestYamlAndDotEnv(t *testing.T) {
	clearEnv(t)
	dir := chdirTemp(t)
	path := filepath.Join(dir, "greenhouse.yml")
	yml := "table: from-yaml\nregion: us-west-2\naddr: \":9000\"\nallowedOrigins:\n  - http://localhost:3000\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.TableName)
	assert.Equal(t, "us-west-2", cfg.Region)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)

	// godotenv never overrides a variable that is already set, even to ""
	require.NoError(t, os.Unsetenv("LISTEN_ADDR"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LISTEN_ADDR=:9100\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LISTEN_ADDR") })
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
}

func TestInvalid(t *testing.T) {
	clearEnv(t)
	dir := chdirTemp(t)
	_, err := Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: not a url\n"), 0o600))
	_, err = Load(path)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "invalid config")
	}

	cfg := Default()
	cfg.TableName = ""
	assert.Error(t, cfg.Validate())
}
