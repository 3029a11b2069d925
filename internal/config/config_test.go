package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := Path(dir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SCOUT_BACKEND_URL", "")
	t.Setenv("SCOUT_API_TOKEN", "")

	dir := t.TempDir()
	path := writeConfig(t, dir, "backend:\n  base_url: https://scout.example.com\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://scout.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Backend.Timeout.Std())
	assert.Equal(t, DefaultPollInterval, cfg.Outreach.PollInterval.Std())
	assert.Equal(t, DefaultRequestsPerSecond, cfg.Backend.RequestsPerSecond)
	assert.Equal(t, DefaultRequestBurst, cfg.Backend.Burst)
	assert.Equal(t, dir, cfg.Dir)
}

func TestLoad_Durations(t *testing.T) {
	t.Setenv("SCOUT_BACKEND_URL", "")

	dir := t.TempDir()
	path := writeConfig(t, dir, `backend:
  base_url: https://scout.example.com
  timeout: 5s
outreach:
  poll_interval: 2m
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout.Std())
	assert.Equal(t, 2*time.Minute, cfg.Outreach.PollInterval.Std())
}

func TestLoad_BadDuration(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "backend:\n  base_url: x\n  timeout: soon\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse duration")
}

func TestLoad_TokenFile(t *testing.T) {
	t.Setenv("SCOUT_API_TOKEN", "")
	t.Setenv("SCOUT_BACKEND_URL", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("  secret-token\n"), 0o600))
	path := writeConfig(t, dir, "backend:\n  base_url: https://x\n  token_file: token\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Backend.Token)
}

func TestLoad_MissingTokenFile(t *testing.T) {
	t.Setenv("SCOUT_API_TOKEN", "")

	dir := t.TempDir()
	path := writeConfig(t, dir, "backend:\n  base_url: https://x\n  token_file: nope\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read token file")
}

func TestEnvOverrides(t *testing.T) {
	t.Run("SCOUT_BACKEND_URL replaces file value", func(t *testing.T) {
		t.Setenv("SCOUT_BACKEND_URL", "https://override")
		dir := t.TempDir()
		path := writeConfig(t, dir, "backend:\n  base_url: https://file\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://override", cfg.Backend.BaseURL)
	})

	t.Run("SCOUT_API_TOKEN wins over token_file", func(t *testing.T) {
		t.Setenv("SCOUT_API_TOKEN", "env-token")
		dir := t.TempDir()
		path := writeConfig(t, dir, "backend:\n  base_url: https://x\n  token_file: missing\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Backend.Token)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")

	cfg.Backend.BaseURL = "https://x"
	require.NoError(t, cfg.Validate())

	cfg.Outreach.PollInterval = Duration(-time.Second)
	require.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("SCOUT_BACKEND_URL", "")
	t.Setenv("SCOUT_API_TOKEN", "")

	dir := filepath.Join(t.TempDir(), DirName)
	cfg := Default()
	cfg.Backend.BaseURL = "https://scout.example.com"
	cfg.Gmail.Credentials = "credentials.json"
	require.NoError(t, cfg.Save(Path(dir)))

	loaded, err := Load(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, cfg.Backend.BaseURL, loaded.Backend.BaseURL)
	assert.Equal(t, filepath.Join(dir, "credentials.json"), loaded.GmailCredentialsPath())
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	ws := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(ws, 0o755))
	writeConfig(t, ws, "backend:\n  base_url: https://x\n")

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	got, err := filepath.EvalSymlinks(Discover())
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(ws)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
