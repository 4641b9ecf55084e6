package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITCAL_TOKEN", "")
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TimeZone != "UTC" || cfg.Sink != SinkGoogle || cfg.PerPage != 100 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Delay != 200*time.Millisecond {
		t.Errorf("Expected 200ms delay, got %s", cfg.Delay)
	}
	if !cfg.OnlyOwnCommits {
		t.Error("Expected only_own_commits to default to true")
	}
	want := filepath.Join(home, ".config", "gitcal", "synced.txt")
	if cfg.SyncedFile != want {
		t.Errorf("Expected synced file %s, got %s", want, cfg.SyncedFile)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "gitcal.yaml")
	content := `username: octo
timezone: Europe/Warsaw
calendar: Commits
per_page: 50
delay: 1s
only_own_commits: false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITCAL_CALENDAR", "primary")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Username != "octo" || cfg.TimeZone != "Europe/Warsaw" || cfg.PerPage != 50 {
		t.Errorf("Expected file values, got %+v", cfg)
	}
	if cfg.Delay != time.Second {
		t.Errorf("Expected 1s delay, got %s", cfg.Delay)
	}
	if cfg.Token != "ghp_test" {
		t.Errorf("Expected token from GITHUB_TOKEN, got '%s'", cfg.Token)
	}
	if cfg.Calendar != "primary" {
		t.Errorf("Expected environment to override calendar, got '%s'", cfg.Calendar)
	}
	if cfg.CommitAuthor() != "" {
		t.Errorf("Expected no author filter, got '%s'", cfg.CommitAuthor())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "gitcal.yaml")
	if err := os.WriteFile(path, []byte("username: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected an error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Username:   "octo",
		Token:      "t",
		TimeZone:   "UTC",
		Calendar:   "primary",
		Sink:       SinkGoogle,
		SyncedFile: "synced.txt",
		PerPage:    100,
		TitleLimit: 100,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cases := map[string]func(c *Config){
		"username": func(c *Config) { c.Username = "" },
		"token":    func(c *Config) { c.Token = " " },
		"timezone": func(c *Config) { c.TimeZone = "Mars/Olympus" },
		"calendar": func(c *Config) { c.Calendar = "" },
		"sink":     func(c *Config) { c.Sink = "outlook" },
		"per_page": func(c *Config) { c.PerPage = 1000 },
		"delay":    func(c *Config) { c.Delay = -time.Second },
	}
	for field, mutate := range cases {
		c := valid
		mutate(&c)
		err := c.Validate()
		if err == nil {
			t.Errorf("Expected %s to be rejected", field)
			continue
		}
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected error to mention %s, got %v", field, err)
		}
	}

	ics := valid
	ics.Sink = SinkICS
	ics.Calendar = ""
	ics.ICSPath = "out.ics"
	if err := ics.Validate(); err != nil {
		t.Errorf("Expected ics sink without calendar to be valid, got %v", err)
	}
}

func TestSetCalendarKeepsOtherSettings(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "cfg", "config.yaml")
	if err := Save(path, &Config{Username: "octo", Token: "secret", TimeZone: "UTC", Sink: SinkGoogle, PerPage: 100, Delay: time.Second}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Errorf("Expected token not to be written, got:\n%s", data)
	}

	if err := SetCalendar(path, "Commits"); err != nil {
		t.Fatalf("SetCalendar failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Calendar != "Commits" || cfg.Username != "octo" || cfg.Delay != time.Second {
		t.Errorf("Expected calendar set and other values kept, got %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestDefaultIgnoresEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("GITCAL_SINK", SinkICS)
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if cfg.Sink != SinkGoogle || cfg.Token != "" {
		t.Errorf("Expected built-in defaults only, got sink=%s token=%q", cfg.Sink, cfg.Token)
	}
	if cfg.Delay != 200*time.Millisecond || !cfg.OnlyOwnCommits {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}
