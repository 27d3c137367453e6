// Package config handles tsbridge.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/caffeineduck/tsbridge/compiler"
	"github.com/caffeineduck/tsbridge/script"
)

// FileName is the project configuration file looked up by Load.
const FileName = "tsbridge.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TSBRIDGE_"

const (
	ModeAOT    = "aot"
	ModeReload = "reload"
)

// Config represents a tsbridge.toml project configuration.
type Config struct {
	Server Server `toml:"server"`
	Client Client `toml:"client"`
	Build  Build  `toml:"build"`
	Log    Log    `toml:"log"`

	// Dir is the directory relative paths are resolved against.
	Dir string `toml:"-"`
}

type Server struct {
	Addr       string  `toml:"addr"`
	Route      string  `toml:"route"`
	HelperURL  string  `toml:"helper-url"`
	Mode       string  `toml:"mode"`
	MaxPayload int64   `toml:"max-payload"`
	RateLimit  float64 `toml:"rate-limit"`
	RateBurst  int     `toml:"rate-burst"`
}

// Client configures where client and shared sources live.
type Client struct {
	Root    string   `toml:"root"`
	Shared  string   `toml:"shared"`
	Ext     string   `toml:"ext"`
	Modules []string `toml:"modules"`
}

// Build configures compilation and the ahead-of-time output.
type Build struct {
	Minify        bool     `toml:"minify"`
	SourceMap     bool     `toml:"source-map"`
	Checker       []string `toml:"checker"`
	SkipTypeCheck bool     `toml:"skip-typecheck"`
	Out           string   `toml:"out"`
	Package       string   `toml:"package"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:       ":8080",
			Route:      "/command",
			HelperURL:  "https://code.jquery.com/jquery-3.7.1.min.js",
			Mode:       ModeReload,
			MaxPayload: 1 << 20,
			RateBurst:  20,
		},
		Client: Client{
			Root:   "client",
			Shared: "shared",
			Ext:    script.DefaultExt,
		},
		Build: Build{
			Minify:  true,
			Out:     "modules_gen.go",
			Package: "assets",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads tsbridge.toml from dir, falling back to defaults when the file
// does not exist. A .env file in dir is loaded into the process environment
// first, then TSBRIDGE_* variables override file values.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	envFile := filepath.Join(abs, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("cannot load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	path := filepath.Join(abs, FileName)
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Dir = abs

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFile reads an explicit configuration file. Relative paths in it are
// resolved against the file's directory.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if filepath.Base(path) == FileName {
		return Load(filepath.Dir(path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if _, err := toml.DecodeFile(abs, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(abs)
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("ROUTE", &c.Server.Route)
	str("HELPER_URL", &c.Server.HelperURL)
	str("MODE", &c.Server.Mode)
	str("CLIENT_ROOT", &c.Client.Root)
	str("SHARED_ROOT", &c.Client.Shared)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup(EnvPrefix + "MODULES"); ok {
		c.Client.Modules = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err)
		}
		c.Server.RateLimit = f
	}
	if v, ok := lookup(EnvPrefix + "MAX_PAYLOAD"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_PAYLOAD: %w", EnvPrefix, err)
		}
		c.Server.MaxPayload = n
	}
	if v, ok := lookup(EnvPrefix + "MINIFY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMINIFY: %w", EnvPrefix, err)
		}
		c.Build.Minify = b
	}
	return nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeAOT, ModeReload:
	default:
		return fmt.Errorf("unknown server mode %q (want %s or %s)", c.Server.Mode, ModeAOT, ModeReload)
	}
	if !strings.HasPrefix(c.Server.Route, "/") {
		return fmt.Errorf("route %q must start with /", c.Server.Route)
	}
	if c.Client.Root == "" {
		return errors.New("client root is required")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("rate limit and burst must not be negative")
	}
	return nil
}

func (c *Config) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Layout returns the source layout with paths resolved against Dir.
func (c *Config) Layout() script.Layout {
	return script.Layout{
		ClientRoot: c.path(c.Client.Root),
		SharedRoot: c.path(c.Client.Shared),
		Ext:        c.Client.Ext,
	}
}

// CompilerConfig returns the per-compile options.
func (c *Config) CompilerConfig() compiler.Config {
	return compiler.Config{
		SearchDirs: c.Layout().SearchDirs(),
		Minify:     c.Build.Minify,
		SourceMap:  c.Build.SourceMap,
	}
}

// Checker returns the type checker for ahead-of-time builds, or nil when
// type checking is disabled.
func (c *Config) Checker() *compiler.Checker {
	if c.Build.SkipTypeCheck {
		return nil
	}
	chk := compiler.DefaultChecker()
	if len(c.Build.Checker) > 0 {
		chk.Command = c.Build.Checker[0]
		chk.Args = append([]string(nil), c.Build.Checker[1:]...)
	}
	chk.Dir = c.Dir
	return chk
}

// OutPath returns the generated Go file location.
func (c *Config) OutPath() string {
	return c.path(c.Build.Out)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
