package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"coursecal/internal/capture"
	"coursecal/internal/export"
	"coursecal/internal/grid"
	"coursecal/internal/ics"
	"coursecal/internal/workbook"
)

const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultTimezone    = ics.DefaultTimezone
	DefaultTerm        = "term1"
	DefaultRefreshCron = "0 * * * *"
	DefaultOutputDir   = "."
	DefaultHTMLName    = export.DefaultHTMLName
	DefaultICSName     = export.DefaultICSName
	DefaultPNGName     = export.DefaultPNGName
	DefaultHeaderRow   = workbook.DefaultHeaderRow
	DefaultHourHeight  = grid.DefaultHourHeight
	DefaultTitle       = grid.DefaultTitle
	DefaultCacheDir    = "./var/workbook-cache"
	DefaultLogLevel    = "info"

	DefaultCaptureWidth      = capture.DefaultWidth
	DefaultCaptureHeight     = capture.DefaultHeight
	DefaultCaptureTimeoutSec = capture.DefaultTimeoutSec
)

// WorkbookConfig locates the course table in the input workbook.
type WorkbookConfig struct {
	// Source is a local path or an http(s) URL.
	Source    string           `yaml:"source"`
	Sheet     string           `yaml:"sheet,omitempty"`
	HeaderRow int              `yaml:"header_row"`
	Columns   workbook.Columns `yaml:"columns"`
}

// OutputConfig names the generated files.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	HTML string `yaml:"html"`
	ICS  string `yaml:"ics"`
	PNG  string `yaml:"png"`
}

type GridConfig struct {
	HourHeight int    `yaml:"hour_height"`
	Title      string `yaml:"title"`
}

// CaptureConfig controls the headless Chromium screenshot of the grid.
type CaptureConfig struct {
	Enabled    bool `yaml:"enabled"`
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	TimeoutSec int  `yaml:"timeout_sec"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the server.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `serve`.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone course meetings take place in.
	Timezone string `yaml:"timezone"`

	// Term selects the window, "term1" or "term2".
	Term string `yaml:"term"`

	// RefreshCron is a 5-field cron schedule for regenerating in `serve`.
	RefreshCron string `yaml:"refresh"`

	Workbook WorkbookConfig `yaml:"workbook"`
	Output   OutputConfig   `yaml:"output"`
	Grid     GridConfig     `yaml:"grid"`
	Capture  CaptureConfig  `yaml:"capture"`

	// CacheDir holds downloaded workbooks.
	CacheDir string `yaml:"cache_dir"`

	LogLevel string `yaml:"log_level"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	c.Term = strings.ToLower(strings.TrimSpace(c.Term))
	if c.Term == "" {
		c.Term = DefaultTerm
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}

	if c.Workbook.HeaderRow <= 0 {
		c.Workbook.HeaderRow = DefaultHeaderRow
	}
	cols, def := &c.Workbook.Columns, workbook.DefaultColumns()
	setDefault(&cols.Course, def.Course)
	setDefault(&cols.Pattern, def.Pattern)
	setDefault(&cols.Format, def.Format)
	setDefault(&cols.Section, def.Section)
	setDefault(&cols.Instructor, def.Instructor)

	setDefault(&c.Output.Dir, DefaultOutputDir)
	setDefault(&c.Output.HTML, DefaultHTMLName)
	setDefault(&c.Output.ICS, DefaultICSName)
	setDefault(&c.Output.PNG, DefaultPNGName)

	if c.Grid.HourHeight <= 0 {
		c.Grid.HourHeight = DefaultHourHeight
	}
	setDefault(&c.Grid.Title, DefaultTitle)

	if c.Capture.Width <= 0 {
		c.Capture.Width = DefaultCaptureWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = DefaultCaptureHeight
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = DefaultCaptureTimeoutSec
	}

	setDefault(&c.CacheDir, DefaultCacheDir)
	setDefault(&c.LogLevel, DefaultLogLevel)

	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

func setDefault(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written there with 0600
// perms and returned. Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unwritable config dir is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory with 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
