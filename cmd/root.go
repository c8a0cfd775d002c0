package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wildrank/wrscout/internal/config"
	"github.com/wildrank/wrscout/internal/dal"
	"github.com/wildrank/wrscout/internal/storage"
)

var (
	dbPath     string
	eventID    string
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "wrscout",
	Short: "FRC scouting data and statistics tool",
	Long: `Store scouting submissions and The Blue Alliance data for an FRC event,
and compute per-team statistics from them.

Settings are read from flags, WRSCOUT_* environment variables and
~/.wrscout/config.yaml, in that order of precedence.`,
	SilenceUsage:      true,
	PersistentPreRunE: resolveSettings,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	home := filepath.Join(mustUserHome(), ".wrscout")
	defaultDB := filepath.Join(home, "wrscout.db")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	flags.StringVar(&eventID, "event", "", "TBA event key, e.g. 2024mibkn")
	flags.StringVar(&configPath, "config", "", "scouting configuration file (YAML or JSON); built-in season config if empty")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log data diagnostics to stderr")

	viper.SetEnvPrefix("WRSCOUT")
	viper.AutomaticEnv()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(home)
	for _, name := range []string{"db", "event", "config", "verbose"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(teamsCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(pivotCmd)
	rootCmd.AddCommand(picklistCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(shellCmd)
}

// resolveSettings merges the optional config file and environment into the
// flag variables. Flags set on the command line win.
func resolveSettings(_ *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read settings: %w", err)
		}
	}
	dbPath = viper.GetString("db")
	eventID = viper.GetString("event")
	configPath = viper.GetString("config")
	verbose = viper.GetBool("verbose")
	return nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// openStore opens the database, creating its directory on first use.
func openStore() (*storage.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

func loadConfig() (*config.Provider, error) {
	if configPath == "" {
		return config.Default()
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func requireEvent() error {
	if eventID == "" {
		return fmt.Errorf("no event selected: use --event or set WRSCOUT_EVENT")
	}
	return nil
}

// openEvent opens the store and loads the selected event. The caller closes
// the returned store.
func openEvent(ctx context.Context) (*storage.DB, *dal.Data, error) {
	if err := requireEvent(); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	d := dal.New(eventID, cfg, db, dal.WithLogger(newLogger()))
	if err := d.LoadData(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load %s: %w", eventID, err)
	}
	return db, d, nil
}
