package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ModeReload, cfg.Server.Mode)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, filepath.Join(dir, "client"), cfg.Layout().ClientRoot)
	assert.Equal(t, filepath.Join(dir, "shared"), cfg.Layout().SharedRoot)
	assert.Equal(t, filepath.Join(dir, "modules_gen.go"), cfg.OutPath())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
addr = "127.0.0.1:9000"
mode = "aot"
route = "/api/command"
rate-limit = 5.5

[client]
root = "web/ts"
shared = "/abs/shared"
modules = ["Main", "Pages.Home"]

[build]
minify = false
source-map = true
checker = ["npx", "tsc", "--noEmit"]

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, ModeAOT, cfg.Server.Mode)
	assert.Equal(t, "/api/command", cfg.Server.Route)
	assert.Equal(t, 5.5, cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Server.RateBurst, "unset keys keep defaults")
	assert.Equal(t, []string{"Main", "Pages.Home"}, cfg.Client.Modules)
	assert.Equal(t, "debug", cfg.Log.Level)

	layout := cfg.Layout()
	assert.Equal(t, filepath.Join(dir, "web", "ts"), layout.ClientRoot)
	assert.Equal(t, "/abs/shared", layout.SharedRoot)

	cc := cfg.CompilerConfig()
	assert.False(t, cc.Minify)
	assert.True(t, cc.SourceMap)
	assert.Equal(t, []string{layout.ClientRoot, layout.SharedRoot}, cc.SearchDirs)

	chk := cfg.Checker()
	require.NotNil(t, chk)
	assert.Equal(t, "npx", chk.Command)
	assert.Equal(t, []string{"tsc", "--noEmit"}, chk.Args)
	assert.Equal(t, dir, chk.Dir)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[server]\naddr = \":1\"\n"), 0o644))
	t.Setenv("TSBRIDGE_ADDR", ":2")
	t.Setenv("TSBRIDGE_MODULES", "Main, Pages.Home,")
	t.Setenv("TSBRIDGE_MINIFY", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":2", cfg.Server.Addr)
	assert.Equal(t, []string{"Main", "Pages.Home"}, cfg.Client.Modules)
	assert.False(t, cfg.Build.Minify)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TSBRIDGE_ROUTE=/from-dotenv\n"), 0o644))
	t.Setenv("TSBRIDGE_ROUTE", "")
	os.Unsetenv("TSBRIDGE_ROUTE")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/from-dotenv", cfg.Server.Route)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[server]\nmode = \"sometimes\"\n"), 0o644))
	_, err := Load(dir)
	assert.ErrorContains(t, err, "unknown server mode")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[server\n"), 0o644))
	_, err = Load(dir)
	assert.ErrorContains(t, err, "parse error")

	t.Setenv("TSBRIDGE_RATE_LIMIT", "fast")
	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "TSBRIDGE_RATE_LIMIT")
}

func TestLoadFileCustomName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev.toml")
	require.NoError(t, os.WriteFile(path, []byte("[client]\nroot = \"src\"\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src"), cfg.Layout().ClientRoot)

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestCheckerDisabled(t *testing.T) {
	cfg := Default()
	cfg.Build.SkipTypeCheck = true
	assert.Nil(t, cfg.Checker())

	cfg.Build.SkipTypeCheck = false
	assert.Equal(t, "tsc", cfg.Checker().Command)
}
