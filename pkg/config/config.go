package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "gitcal"
	configFile = "config.yaml"
	syncedFile = "synced.txt"

	envPrefix = "GITCAL"

	SinkGoogle = "google"
	SinkICS    = "ics"
)

type Config struct {
	// Username is the GitHub login whose repositories are mirrored.
	Username string `mapstructure:"username" yaml:"username"`
	// Token is a GitHub personal access token.
	Token string `mapstructure:"token" yaml:"token,omitempty"`
	// TimeZone is the IANA zone attached to events.
	TimeZone string `mapstructure:"timezone" yaml:"timezone"`
	// Calendar is a Google calendar id or display name.
	Calendar string `mapstructure:"calendar" yaml:"calendar"`
	// Sink selects the target: "google" or "ics".
	Sink string `mapstructure:"sink" yaml:"sink"`
	// ICSPath is the output file when Sink is "ics".
	ICSPath        string        `mapstructure:"ics_path" yaml:"ics_path,omitempty"`
	SyncedFile     string        `mapstructure:"synced_file" yaml:"synced_file"`
	PerPage        int           `mapstructure:"per_page" yaml:"per_page"`
	Delay          time.Duration `mapstructure:"delay" yaml:"delay"`
	OnlyOwnCommits bool          `mapstructure:"only_own_commits" yaml:"only_own_commits"`
	TitlePrefix    string        `mapstructure:"title_prefix" yaml:"title_prefix"`
	TitleLimit     int           `mapstructure:"title_limit" yaml:"title_limit"`
	APIURL         string        `mapstructure:"api_url" yaml:"api_url"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile        string        `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

// Dir returns the directory holding config, token and state files.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("username", "")
	v.SetDefault("token", "")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("calendar", "")
	v.SetDefault("sink", SinkGoogle)
	v.SetDefault("ics_path", filepath.Join(dir, "commits.ics"))
	v.SetDefault("synced_file", filepath.Join(dir, syncedFile))
	v.SetDefault("per_page", 100)
	v.SetDefault("delay", 200*time.Millisecond)
	v.SetDefault("only_own_commits", true)
	v.SetDefault("title_prefix", "GitHub Commit: ")
	v.SetDefault("title_limit", 100)
	v.SetDefault("api_url", "https://api.github.com")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// Default returns the built-in settings, ignoring any config file and the
// environment.
func Default() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	v := viper.New()
	setDefaults(v, dir)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode default config: %w", err)
	}
	return &cfg, nil
}

// Load reads the YAML file at path (the default location if empty) and
// overlays GITCAL_* environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, configFile)
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("token", envPrefix+"_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every setting that would stop a run from starting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if strings.TrimSpace(c.Token) == "" {
		errs = append(errs, errors.New("token is required (set GITCAL_TOKEN or GITHUB_TOKEN)"))
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("unknown timezone %q", c.TimeZone))
	}
	switch c.Sink {
	case SinkGoogle:
		if strings.TrimSpace(c.Calendar) == "" {
			errs = append(errs, errors.New("calendar is required for the google sink"))
		}
	case SinkICS:
		if c.ICSPath == "" {
			errs = append(errs, errors.New("ics_path is required for the ics sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink %q", c.Sink))
	}
	if c.SyncedFile == "" {
		errs = append(errs, errors.New("synced_file is required"))
	}
	if c.PerPage < 1 || c.PerPage > 100 {
		errs = append(errs, fmt.Errorf("per_page must be between 1 and 100, got %d", c.PerPage))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Delay))
	}
	if c.TitleLimit < 1 {
		errs = append(errs, fmt.Errorf("title_limit must be positive, got %d", c.TitleLimit))
	}
	return errors.Join(errs...)
}

// CommitAuthor is the author filter passed to GitHub, empty for none.
func (c *Config) CommitAuthor() string {
	if c.OnlyOwnCommits {
		return c.Username
	}
	return ""
}

// SetCalendar stores name as the default calendar in the file at path,
// leaving the other settings in the file untouched.
func SetCalendar(path, name string) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	doc["calendar"] = name
	return writeYAML(path, doc)
}

// Save writes cfg to path. The token is never written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	out := *cfg
	out.Token = ""
	return writeYAML(path, &out)
}

// writeYAML replaces path atomically via a temp file in the same directory.
func writeYAML(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".gitcal-config-*.tmp")
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
	if err := os.Chmod(tmpName, 0600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
