// Package config loads morphan settings from defaults, an optional
// morphan.yaml, MORPHAN_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/morphan/pkg/analysis"
	"github.com/japaniel/morphan/pkg/dictionary"
	"github.com/japaniel/morphan/pkg/format"
	"github.com/japaniel/morphan/pkg/logging"
	"github.com/japaniel/morphan/pkg/morph"
)

// FileName is the config file base name searched for in the working
// directory and $HOME/.config/morphan.
const FileName = "morphan"

// EnvPrefix prefixes environment overrides, e.g. MORPHAN_OUTPUT_FORMAT.
const EnvPrefix = "MORPHAN"

// Config is the complete morphan configuration.
type Config struct {
	POSTags    string       `mapstructure:"pos_tags" yaml:"pos_tags"`
	Dictionary string       `mapstructure:"dictionary" yaml:"dictionary"`
	Kanji      string       `mapstructure:"kanji" yaml:"kanji"`
	Output     OutputConfig `mapstructure:"output" yaml:"output"`
	DB         DBConfig     `mapstructure:"db" yaml:"db"`
	Server     ServerConfig `mapstructure:"server" yaml:"server"`
	Log        LogConfig    `mapstructure:"log" yaml:"log"`
	Gloss      GlossConfig  `mapstructure:"gloss" yaml:"gloss"`
	Fetch      FetchConfig  `mapstructure:"fetch" yaml:"fetch"`
	Ingest     IngestConfig `mapstructure:"ingest" yaml:"ingest"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

type DBConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	MaxBody int64  `mapstructure:"max_body" yaml:"max_body"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// GlossConfig points at a JMdict-simplified file. A missing file disables glosses.
type GlossConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBody int64         `mapstructure:"max_body" yaml:"max_body"`
}

type IngestConfig struct {
	Workers   int `mapstructure:"workers" yaml:"workers"`
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		POSTags:    analysis.PresetStrict,
		Dictionary: morph.DictIPA,
		Kanji:      string(analysis.KanjiScript),
		Output:     OutputConfig{Format: string(format.CSV), Dir: "."},
		DB:         DBConfig{Path: "morphan.db"},
		Server:     ServerConfig{Addr: ":8080", MaxBody: 1 << 20},
		Log:        LogConfig{Level: "info", Format: logging.FormatText},
		Gloss:      GlossConfig{Path: dictionary.DefaultFileName},
		Fetch:      FetchConfig{Timeout: 30 * time.Second, MaxBody: 10 << 20},
		Ingest:     IngestConfig{Workers: 4, BatchSize: 20},
	}
}

// NewViper returns a viper instance holding the defaults and reading MORPHAN_*
// environment variables. Callers bind their flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("pos_tags", d.POSTags)
	v.SetDefault("dictionary", d.Dictionary)
	v.SetDefault("kanji", d.Kanji)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_body", d.Server.MaxBody)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("gloss.path", d.Gloss.Path)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_body", d.Fetch.MaxBody)
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.batch_size", d.Ingest.BatchSize)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result. An explicit file
// must exist; otherwise morphan.yaml is optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "morphan"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every selector before any analysis runs.
func (c *Config) Validate() error {
	if _, err := analysis.ParsePOSTagSet(c.POSTags); err != nil {
		return err
	}
	if c.Dictionary != morph.DictIPA && c.Dictionary != morph.DictUni {
		return &analysis.ConfigurationError{Field: "dictionary", Value: c.Dictionary, Message: "want ipa or uni"}
	}
	if _, err := analysis.ParseKanjiMatcher(c.Kanji); err != nil {
		return err
	}
	if _, err := format.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if !logging.ValidLevel(c.Log.Level) {
		return &analysis.ConfigurationError{Field: "log level", Value: c.Log.Level, Message: "want debug, info, warn or error"}
	}
	if f := strings.ToLower(c.Log.Format); f != logging.FormatText && f != logging.FormatJSON {
		return &analysis.ConfigurationError{Field: "log format", Value: c.Log.Format, Message: "want text or json"}
	}
	if c.Server.MaxBody <= 0 || c.Fetch.MaxBody <= 0 {
		return &analysis.ConfigurationError{Field: "max_body", Message: "must be positive"}
	}
	if c.Ingest.Workers <= 0 || c.Ingest.BatchSize <= 0 {
		return &analysis.ConfigurationError{Field: "ingest", Message: "workers and batch_size must be positive"}
	}
	return nil
}

// Tags returns the parsed content-word tag set.
func (c *Config) Tags() analysis.POSTagSet {
	tags, err := analysis.ParsePOSTagSet(c.POSTags)
	if err != nil {
		return analysis.StrictTags()
	}
	return tags
}

// KanjiMatcher returns the parsed kanji matcher.
func (c *Config) KanjiMatcher() analysis.KanjiMatcher {
	m, err := analysis.ParseKanjiMatcher(c.Kanji)
	if err != nil {
		return analysis.IsHan
	}
	return m
}

// WriteDefault writes the built-in settings as YAML to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	out, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
