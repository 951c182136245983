package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.FileLevel)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)
	assert.Equal(t, "data/faculty_page_links.json", cfg.Paths.Links)
	assert.Equal(t, "data/faculty_page", cfg.Paths.PageDir)
	assert.Equal(t, "data/faculty_names", cfg.Paths.ParseDir)
	assert.Empty(t, cfg.Fetch.Proxies)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: json
fetch:
  timeout_secs: 5
  rate_per_sec: 0.5
  proxies:
    - http://127.0.0.1:8080
crawl:
  max_pages: 3
paths:
  parsedir: out/names
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rostercrawl.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Fetch.TimeoutSecs)
	assert.InDelta(t, 0.5, cfg.Fetch.RatePerSec, 0.001)
	assert.Equal(t, []string{"http://127.0.0.1:8080"}, cfg.Fetch.Proxies)
	assert.Equal(t, 3, cfg.Crawl.MaxPages)
	assert.Equal(t, "out/names", cfg.Paths.ParseDir)
	assert.Equal(t, "data/faculty_page", cfg.Paths.PageDir)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	dir := chdirTemp(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ROSTERCRAWL_CRAWL_MAX_PAGES", "7")
	t.Setenv("ROSTERCRAWL_LOG_LEVEL", "info")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Crawl.MaxPages)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROSTERCRAWL_FETCH_TIMEOUT_SECS=12\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("ROSTERCRAWL_FETCH_TIMEOUT_SECS") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Fetch.TimeoutSecs)
}

func TestLoadFlagsWin(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ROSTERCRAWL_PATHS_PARSEDIR", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("parsedir", "", "")
	flags.String("pagedir", "", "")
	flags.Int("max-pages", 0, "")
	require.NoError(t, flags.Parse([]string{"--parsedir", "from-flag", "--max-pages", "4"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Paths.ParseDir)
	assert.Equal(t, 4, cfg.Crawl.MaxPages)
	assert.Equal(t, "data/faculty_page", cfg.Paths.PageDir, "unset flags keep lower layers")
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ROSTERCRAWL_CRAWL_MAX_PAGES", "0")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "crawl.max_pages")
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "run.log")

	logger, err := NewLogger(LogConfig{Level: "error", Format: "json", File: logFile, FileLevel: "debug", MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Debug("debug line")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug line")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
