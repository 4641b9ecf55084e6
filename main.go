package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/gitcal/pkg/auth"
	"github.com/harrisonrobin/gitcal/pkg/config"
	"github.com/harrisonrobin/gitcal/pkg/engine"
	"github.com/harrisonrobin/gitcal/pkg/github"
	"github.com/harrisonrobin/gitcal/pkg/google"
	"github.com/harrisonrobin/gitcal/pkg/ics"
	"github.com/harrisonrobin/gitcal/pkg/log"
	"github.com/harrisonrobin/gitcal/pkg/mapper"
	"github.com/harrisonrobin/gitcal/pkg/synced"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath  string
	calendar    string
	setCalendar string
	doAuth      bool
	sink        string
	icsPath     string
	delay       time.Duration
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "gitcal",
		Short: "Mirror your GitHub commit history into a calendar",
		Long: `gitcal lists the repositories you own on GitHub, walks the commits on each
default branch and creates one calendar event per commit.

Commits already mirrored are remembered in a local file, so running gitcal
again only adds new commits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to the config file (default ~/.config/gitcal/config.yaml)")
	fl.StringVar(&f.calendar, "calendar", "", "Google Calendar id or name to write to (overrides config)")
	fl.StringVar(&f.setCalendar, "set-calendar", "", "Set the default Google Calendar and exit")
	fl.BoolVar(&f.doAuth, "auth", false, "Authenticate with Google Calendar and exit")
	fl.StringVar(&f.sink, "sink", "", "Event target: google or ics (overrides config)")
	fl.StringVar(&f.icsPath, "ics", "", "Write events to this .ics file instead of Google Calendar")
	fl.DurationVar(&f.delay, "delay", 0, "Pause between calendar writes (overrides config)")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	ctx := context.Background()

	if f.setCalendar != "" {
		if err := config.SetCalendar(f.configPath, f.setCalendar); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
		fmt.Printf("Default calendar set to: %s\n", f.setCalendar)
		return nil
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, cfg)

	logger := log.New(log.Options{Level: log.ParseLevel(cfg.LogLevel), File: cfg.LogFile})
	defer logger.Close()

	dir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("could not find configuration directory: %w", err)
	}

	if f.doAuth {
		if err := auth.ResetToken(dir); err != nil {
			return err
		}
		if _, err := auth.GetCalendarService(ctx, dir, logger); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		logger.Info("authentication successful", "token_file", filepath.Join(dir, auth.TokenFile))
		return nil
	}

	if err := writeDefaultConfig(f.configPath, logger); err != nil {
		logger.Warn("could not write default config", "err", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sink, calendarID, err := openSink(ctx, cfg, dir, logger)
	if err != nil {
		return err
	}

	set, err := synced.OpenFileSet(cfg.SyncedFile)
	if err != nil {
		return err
	}
	defer set.Close()
	logger.Info("loaded synced set", "path", set.Path, "count", set.Len())

	source := github.NewClient(ctx, github.Options{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		PerPage: cfg.PerPage,
		Author:  cfg.CommitAuthor(),
		Logger:  logger,
	})

	m := mapper.Mapper{
		TitlePrefix: cfg.TitlePrefix,
		TitleLimit:  cfg.TitleLimit,
		CalendarID:  calendarID,
		TimeZone:    cfg.TimeZone,
	}

	eng := engine.New(cfg.Username, source, m, sink, set, logger)
	eng.Delay = cfg.Delay

	logger.Info("starting sync", "user", cfg.Username, "sink", cfg.Sink, "calendar", calendarID)
	if _, err := eng.Run(ctx); err != nil {
		return err
	}
	fmt.Println("All new commits have been added to your calendar.")
	return nil
}

func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("calendar") {
		cfg.Calendar = f.calendar
	}
	if fl.Changed("sink") {
		cfg.Sink = f.sink
	}
	if fl.Changed("ics") {
		cfg.Sink = config.SinkICS
		cfg.ICSPath = f.icsPath
	}
	if fl.Changed("delay") {
		cfg.Delay = f.delay
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

func openSink(ctx context.Context, cfg *config.Config, dir string, logger *log.Logger) (engine.Sink, string, error) {
	if cfg.Sink == config.SinkICS {
		logger.Info("writing events to file", "path", cfg.ICSPath)
		return ics.NewFileSink(cfg.ICSPath), "", nil
	}

	srv, err := auth.GetCalendarService(ctx, dir, logger)
	if err != nil {
		return nil, "", err
	}
	client, err := google.NewClient(ctx, srv, cfg.Calendar)
	if err != nil {
		return nil, "", err
	}
	return client, client.CalendarID(), nil
}

// writeDefaultConfig creates the config file on first run so there is
// something to edit. Only the built-in defaults are written; flags and
// environment variables apply to the current run alone.
func writeDefaultConfig(path string, logger *log.Logger) error {
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := config.Default()
	if err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	logger.Info("wrote default config", "path", path)
	return nil
}
