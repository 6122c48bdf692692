// Package config loads linter settings from .spellcheck.yaml, the
// environment and built-in defaults, in increasing order of precedence
// below command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/japaniel/spellcheck/pkg/discover"
	"github.com/japaniel/spellcheck/pkg/oracle"
	"github.com/japaniel/spellcheck/pkg/report"
	"github.com/japaniel/spellcheck/pkg/scanner"
)

const (
	// AppName is the application name and environment prefix.
	AppName = "spellcheck"
	// ConfigFileName is the config file looked up in the working directory.
	ConfigFileName = ".spellcheck"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
)

// Dictionaries locates the two word lists.
type Dictionaries struct {
	Shared  string `mapstructure:"shared"`
	Project string `mapstructure:"project"`
}

// Config is the decoded configuration.
type Config struct {
	Dictionaries Dictionaries      `mapstructure:"dictionaries"`
	Report       string            `mapstructure:"report"`
	Journal      string            `mapstructure:"journal"`
	MetricsFile  string            `mapstructure:"metrics_file"`
	Workers      int               `mapstructure:"workers"`
	Suggestions  int               `mapstructure:"suggestions"`
	WordLists    []string          `mapstructure:"wordlists"`
	IgnoreDirs   []string          `mapstructure:"ignore_dirs"`
	Ignore       []string          `mapstructure:"ignore"`
	Kinds        map[string]string `mapstructure:"kinds"`
	Debounce     time.Duration     `mapstructure:"debounce"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Dictionaries: Dictionaries{
			Shared:  filepath.Join("data", "dictionaries", "generic_dictionary.txt"),
			Project: filepath.Join("data", "dictionaries", "project_dictionary.txt"),
		},
		Report:      report.DefaultPath,
		Journal:     filepath.Join(".spellcheck", "journal.db"),
		Workers:     4,
		Suggestions: oracle.DefaultMaxSuggestions,
		IgnoreDirs:  append([]string(nil), discover.DefaultIgnoreDirs...),
		Debounce:    500 * time.Millisecond,
	}
}

// LoadOptions select where configuration is read from.
type LoadOptions struct {
	// ConfigFile, when set, must exist and is used exclusively.
	ConfigFile string
	// Dir is searched for .spellcheck.yaml when ConfigFile is empty; empty
	// means the working directory.
	Dir string
}

// Load builds a Config and returns the path of the file it read, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("dictionaries.shared", defaults.Dictionaries.Shared)
	v.SetDefault("dictionaries.project", defaults.Dictionaries.Project)
	v.SetDefault("report", defaults.Report)
	v.SetDefault("journal", defaults.Journal)
	v.SetDefault("metrics_file", "")
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("suggestions", defaults.Suggestions)
	v.SetDefault("wordlists", []string{})
	v.SetDefault("ignore_dirs", defaults.IgnoreDirs)
	v.SetDefault("ignore", []string{})
	v.SetDefault("kinds", map[string]string{})
	v.SetDefault("debounce", defaults.Debounce)

	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, "", fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
		resolved = opts.ConfigFile
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
			resolved = v.ConfigFileUsed()
		case errors.As(err, &notFound):
			// no config file: defaults and environment only
		default:
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// Validate checks values that decoding cannot.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Suggestions < 0 {
		return fmt.Errorf("suggestions must not be negative, got %d", c.Suggestions)
	}
	if _, err := c.kinds(); err != nil {
		return err
	}
	return discover.Options{Ignore: c.Ignore}.Validate()
}

// kinds merges configured extensions over the default extension map.
func (c *Config) kinds() (map[string]scanner.ContentKind, error) {
	out := make(map[string]scanner.ContentKind, len(discover.DefaultKinds)+len(c.Kinds))
	for ext, k := range discover.DefaultKinds {
		out[ext] = k
	}
	for ext, name := range c.Kinds {
		k, err := scanner.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("kinds.%s: %w", ext, err)
		}
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = k
	}
	return out, nil
}

// DiscoverOptions converts the file selection settings. The report, journal
// and metrics outputs are always excluded.
func (c *Config) DiscoverOptions() discover.Options {
	kinds, err := c.kinds()
	if err != nil {
		kinds = nil
	}
	var exclude []string
	for _, p := range []string{c.Report, c.Journal, c.MetricsFile} {
		if p != "" {
			exclude = append(exclude, p)
		}
	}
	return discover.Options{
		IgnoreDirs: c.IgnoreDirs,
		Ignore:     c.Ignore,
		Kinds:      kinds,
		Exclude:    exclude,
	}
}
