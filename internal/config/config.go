package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceFS      = "fs"
	SourceCatalog = "catalog"
)

type SourceConfig struct {
	Name string `json:"name" yaml:"name"`
	UUID string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// ShowHidden lists dotfiles of fs sources.
	ShowHidden bool `json:"show_hidden,omitempty" yaml:"show_hidden,omitempty"`
}

type Config struct {
	Schema        int            `json:"schema" yaml:"schema"`
	DataDir       string         `json:"data_dir" yaml:"data_dir"`
	ModelMode     string         `json:"model_mode,omitempty" yaml:"model_mode,omitempty"`
	BatchSize     int            `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	BrowseTimeout Duration       `json:"browse_timeout,omitempty" yaml:"browse_timeout,omitempty"`
	Playlist      string         `json:"playlist,omitempty" yaml:"playlist,omitempty"`
	HiddenSources []string       `json:"hidden_sources,omitempty" yaml:"hidden_sources,omitempty"`
	Sources       []SourceConfig `json:"sources,omitempty" yaml:"sources,omitempty"`

	path string
}

const CurrentConfigSchema = 1

const (
	DefaultModelMode     = "direct"
	DefaultBatchSize     = 20
	DefaultBrowseTimeout = 30 * time.Second
	DefaultPlaylist      = "default"
)

// DefaultHiddenSources are resolvers that never hold browsable media.
var DefaultHiddenSources = []string{"gnomevfs"}

// Duration reads "30s" style strings as well as plain seconds.
type Duration struct {
	time.Duration
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("browse_timeout: %w", err)
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Schema:        CurrentConfigSchema,
		DataDir:       defaultDataDir(),
		ModelMode:     DefaultModelMode,
		BatchSize:     DefaultBatchSize,
		BrowseTimeout: Duration{DefaultBrowseTimeout},
		Playlist:      DefaultPlaylist,
		HiddenSources: append([]string(nil), DefaultHiddenSources...),
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mtg")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mtg")
}

// Load reads the first config file found, falling back to DefaultConfig.
func Load(configPath string) (*Config, error) {
	paths := getConfigPaths(configPath)

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading config: %w", err)
		}

		cfg, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		cfg.path = path
		return cfg, nil
	}

	return DefaultConfig(), nil
}

// Parse decodes data as YAML when path ends in .yaml or .yml, JSON
// otherwise, on top of the defaults.
func Parse(path string, data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.HiddenSources = nil

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.HiddenSources == nil {
		cfg.HiddenSources = append([]string(nil), DefaultHiddenSources...)
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func getConfigPaths(explicit string) []string {
	home, _ := os.UserHomeDir()

	var paths []string

	if explicit != "" {
		paths = append(paths, explicit)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "mtg", "config.json"))

	paths = append(paths, filepath.Join(home, ".config", "mtg", "config.yaml"))

	return paths
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[1:])
	}
	return p
}

func (c *Config) expandPaths() {
	c.DataDir = expandHome(c.DataDir)
	for i := range c.Sources {
		c.Sources[i].Path = expandHome(c.Sources[i].Path)
		if c.Sources[i].Type == "" {
			c.Sources[i].Type = SourceFS
		}
	}
}

// Validate checks source entries and numeric settings.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	if c.BrowseTimeout.Duration < 0 {
		return fmt.Errorf("browse_timeout must not be negative")
	}
	for i, s := range c.Sources {
		switch s.Type {
		case SourceFS:
			if s.Path == "" {
				return fmt.Errorf("sources[%d]: fs source needs a path", i)
			}
		case SourceCatalog:
			if s.UUID == "" && s.Path == "" {
				return fmt.Errorf("sources[%d]: catalog source needs a uuid or path", i)
			}
		default:
			return fmt.Errorf("sources[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "mtg.db")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "debug.log")
}
