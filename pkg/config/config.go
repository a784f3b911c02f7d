// Package config loads skypack settings from defaults, a config file,
// SKYPACK_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application name.
	AppName = "skypack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "skypack"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SKYPACK"
)

// Source backends
const (
	SourceGitHub = "github"
	SourceS3     = "s3"
	SourceDir    = "dir"
)

// Toggles are the per-run options shown in the options form.
type Toggles struct {
	CreateArchive bool `mapstructure:"create_archive" yaml:"create_archive"`
	CreateLog     bool `mapstructure:"create_log" yaml:"create_log"`
	VerboseLog    bool `mapstructure:"verbose_log" yaml:"verbose_log"`
}

type GitHubConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Repo    string        `mapstructure:"repo" yaml:"repo"`
	Ref     string        `mapstructure:"ref" yaml:"ref"`
	Token   string        `mapstructure:"token" yaml:"token"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// S3Config points at a bucket mirroring the item repository.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

type DirConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type SourceConfig struct {
	Type   string       `mapstructure:"type" yaml:"type"`
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
	S3     S3Config     `mapstructure:"s3" yaml:"s3"`
	Dir    DirConfig    `mapstructure:"dir" yaml:"dir"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Path defaults to HistoryFileName inside the output directory.
	Path string `mapstructure:"path" yaml:"path"`
}

const HistoryFileName = "skypack.db"

// Config is the full set of skypack settings.
type Config struct {
	Toggles         `mapstructure:",squash" yaml:",inline"`
	OutputDir       string        `mapstructure:"output_dir" yaml:"output_dir"`
	OverridesDir    string        `mapstructure:"overrides_dir" yaml:"overrides_dir"`
	AssetsDir       string        `mapstructure:"assets_dir" yaml:"assets_dir"`
	CollisionPolicy string        `mapstructure:"collision_policy" yaml:"collision_policy"`
	LookupInterval  time.Duration `mapstructure:"lookup_interval" yaml:"lookup_interval"`
	MemoizeLookups  bool          `mapstructure:"memoize_lookups" yaml:"memoize_lookups"`
	Source          SourceConfig  `mapstructure:"source" yaml:"source"`
	History         HistoryConfig `mapstructure:"history" yaml:"history"`
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFilePath is used exclusively when set.
	ConfigFilePath string
	// SearchDirs are searched in order for skypack.{yaml,yml,toml,json}.
	SearchDirs []string
	// Flags are bound by their config key name when changed.
	Flags *pflag.FlagSet
}

// InstallDir returns the directory holding the running executable.
func InstallDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// UserConfigDir returns $XDG_CONFIG_HOME/skypack (or the platform equivalent).
func UserConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	install := InstallDir()
	return &Config{
		Toggles: Toggles{
			CreateArchive: true,
			CreateLog:     false,
			VerboseLog:    false,
		},
		OutputDir:       "output",
		OverridesDir:    install,
		AssetsDir:       install,
		CollisionPolicy: "suffix",
		Source: SourceConfig{
			Type: SourceGitHub,
			GitHub: GitHubConfig{
				BaseURL: "https://api.github.com",
				Repo:    "NotEnoughUpdates/NotEnoughUpdates-REPO",
			},
			S3: S3Config{
				Region: "us-east-1",
				UseSSL: true,
			},
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("create_archive", d.CreateArchive)
	v.SetDefault("create_log", d.CreateLog)
	v.SetDefault("verbose_log", d.VerboseLog)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("overrides_dir", d.OverridesDir)
	v.SetDefault("assets_dir", d.AssetsDir)
	v.SetDefault("collision_policy", d.CollisionPolicy)
	v.SetDefault("lookup_interval", d.LookupInterval)
	v.SetDefault("memoize_lookups", d.MemoizeLookups)
	v.SetDefault("source.type", d.Source.Type)
	v.SetDefault("source.github.base_url", d.Source.GitHub.BaseURL)
	v.SetDefault("source.github.repo", d.Source.GitHub.Repo)
	v.SetDefault("source.github.ref", d.Source.GitHub.Ref)
	v.SetDefault("source.github.token", d.Source.GitHub.Token)
	v.SetDefault("source.github.timeout", d.Source.GitHub.Timeout)
	v.SetDefault("source.s3.endpoint", d.Source.S3.Endpoint)
	v.SetDefault("source.s3.region", d.Source.S3.Region)
	v.SetDefault("source.s3.bucket", d.Source.S3.Bucket)
	v.SetDefault("source.s3.prefix", d.Source.S3.Prefix)
	v.SetDefault("source.s3.access_key", d.Source.S3.AccessKey)
	v.SetDefault("source.s3.secret_key", d.Source.S3.SecretKey)
	v.SetDefault("source.s3.use_ssl", d.Source.S3.UseSSL)
	v.SetDefault("source.dir.path", d.Source.Dir.Path)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
}

// Load resolves the configuration. The returned path is the config file that
// was read, or empty when only defaults and the environment applied.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		v.SetConfigFile(opts.ConfigFilePath)
	} else {
		v.SetConfigName(ConfigFileName)
		for _, dir := range opts.SearchDirs {
			v.AddConfigPath(dir)
		}
	}

	if opts.ConfigFilePath != "" || len(opts.SearchDirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, "", err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.OutputDir, HistoryFileName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, v.ConfigFileUsed(), nil
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"archive":  "create_archive",
	"log":      "create_log",
	"verbose":  "verbose_log",
	"output":   "output_dir",
	"policy":   "collision_policy",
	"source":   "source.type",
	"memoize":  "memoize_lookups",
	"interval": "lookup_interval",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.CollisionPolicy {
	case "suffix", "overwrite":
	default:
		return fmt.Errorf("invalid collision_policy %q (want suffix or overwrite)", c.CollisionPolicy)
	}

	switch c.Source.Type {
	case SourceGitHub:
		if c.Source.GitHub.Repo == "" {
			return fmt.Errorf("source.github.repo is required")
		}
	case SourceS3:
		if c.Source.S3.Endpoint == "" || c.Source.S3.Bucket == "" {
			return fmt.Errorf("source.s3.endpoint and source.s3.bucket are required")
		}
	case SourceDir:
		if c.Source.Dir.Path == "" {
			return fmt.Errorf("source.dir.path is required")
		}
	default:
		return fmt.Errorf("unknown source.type %q", c.Source.Type)
	}

	if c.LookupInterval < 0 {
		return fmt.Errorf("lookup_interval cannot be negative")
	}
	return nil
}

// Marshal renders the configuration as YAML with secrets masked.
func (c *Config) Marshal() ([]byte, error) {
	masked := *c
	if masked.Source.GitHub.Token != "" {
		masked.Source.GitHub.Token = "********"
	}
	if masked.Source.S3.SecretKey != "" {
		masked.Source.S3.SecretKey = "********"
	}
	return yaml.Marshal(&masked)
}

// WriteDefault writes the default configuration to path, refusing to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
