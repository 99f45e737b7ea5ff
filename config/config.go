package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("richedit.config")

// Duration is a time.Duration written as text ("500ms") in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type Config struct {
	TabSize int  `toml:"tab_size"`
	UseTabs bool `toml:"use_tabs"`

	HighlightDelay    Duration `toml:"highlight_delay"`
	VisibleRangeDelay Duration `toml:"visible_range_delay"`
	SelectionDelay    Duration `toml:"selection_delay"`
	UndoQuiet         Duration `toml:"undo_quiet"`

	AutocompleteMinLength     int    `toml:"autocomplete_min_length"`
	AutocompleteSearchPattern string `toml:"autocomplete_search_pattern"`
	AutocompleteFuzzy         bool   `toml:"autocomplete_fuzzy"`

	MaxBlockScan    int  `toml:"max_block_scan"`
	MaxFragmentScan int  `toml:"max_fragment_scan"`
	ExtendedStyles  bool `toml:"extended_styles"`
	HideFoldEnd     bool `toml:"hide_fold_end"`

	// Files larger than LazyThreshold bytes open through a lazy source.
	LazyThreshold     int64    `toml:"lazy_threshold"`
	LazyEvictInterval Duration `toml:"lazy_evict_interval"`
	LazyIdleTTL       Duration `toml:"lazy_idle_ttl"`

	LogVerbosity int    `toml:"log_verbosity"`
	LogFile      string `toml:"log_file"`

	// Colors overrides palette entries by name, e.g. keyword = "navy".
	Colors map[string]string `toml:"colors"`
}

func Default() *Config {
	return &Config{
		TabSize:                   4,
		HighlightDelay:            Duration(500 * time.Millisecond),
		VisibleRangeDelay:         Duration(300 * time.Millisecond),
		SelectionDelay:            Duration(100 * time.Millisecond),
		UndoQuiet:                 Duration(300 * time.Millisecond),
		AutocompleteMinLength:     2,
		AutocompleteSearchPattern: `[\w\.]`,
		AutocompleteFuzzy:         true,
		MaxBlockScan:              100000,
		MaxFragmentScan:           256,
		LazyThreshold:             16 * 1024 * 1024,
		LazyEvictInterval:         Duration(10 * time.Second),
		LazyIdleTTL:               Duration(time.Minute),
		LogVerbosity:              1,
	}
}

// LanguageTabSize returns the per-language default or the configured tab
// size.
func (c *Config) LanguageTabSize(language string) int {
	switch language {
	case "JavaScript", "TypeScript", "JSON", "HTML", "XML", "CSS",
		"YAML", "JSX", "TSX", "TOML":
		return 2
	case "Go", "Python", "Java", "C", "C++", "Rust", "C#", "SQL":
		return 4
	case "Makefile":
		return 8
	default:
		return c.TabSize
	}
}

// LanguageUseTabs reports whether a language indents with real tabs.
func (c *Config) LanguageUseTabs(language string) bool {
	switch language {
	case "Go", "Makefile":
		return true
	default:
		return c.UseTabs
	}
}

// Color resolves a palette override.
func (c *Config) Color(name string) (tcell.Color, bool) {
	v, ok := c.Colors[name]
	if !ok {
		return tcell.ColorDefault, false
	}
	color := tcell.GetColor(v)
	return color, color != tcell.ColorDefault
}

func (c *Config) Validate() error {
	var errs []error
	if c.TabSize < 1 {
		errs = append(errs, fmt.Errorf("tab_size must be positive, got %d", c.TabSize))
	}
	if c.AutocompleteMinLength < 0 {
		errs = append(errs, fmt.Errorf("autocomplete_min_length must not be negative, got %d", c.AutocompleteMinLength))
	}
	if c.MaxBlockScan < 1 || c.MaxFragmentScan < 1 {
		errs = append(errs, errors.New("scan caps must be positive"))
	}
	for name, d := range map[string]Duration{
		"highlight_delay":     c.HighlightDelay,
		"visible_range_delay": c.VisibleRangeDelay,
		"selection_delay":     c.SelectionDelay,
		"undo_quiet":          c.UndoQuiet,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "richedit", "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
