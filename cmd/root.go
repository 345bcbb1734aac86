package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/redlinehq/coverlay/internal/config"
	"github.com/redlinehq/coverlay/internal/overlay"
	"github.com/redlinehq/coverlay/internal/store"
	"github.com/redlinehq/coverlay/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "coverlay",
	Short: "Coverage overlay with drift tracking and triage",
	Long: "Coverlay maps an externally generated coverage report onto local source files,\n" +
		"keeps the line overlay correct as files are edited, and lets uncovered lines be\n" +
		"triaged into documented categories.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .coverlay.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".coverlay")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("COVERLAY")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// openSession builds a session from config, restoring persisted state from
// the triage database. The returned close function flushes nothing; callers
// that mutate state must call saveSession before closing.
func openSession(ctx context.Context) (*overlay.Session, *store.Store, func(), error) {
	cfg := config.Load()

	var em *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		var err error
		em, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		em.Close()
		return nil, nil, nil, err
	}

	sess := overlay.New(cfg.SearchRoot, cfg.WalkDepth, em)
	snap, err := db.Load(ctx)
	if err != nil {
		db.Close()
		em.Close()
		return nil, nil, nil, err
	}
	if err := sess.RestoreSnapshot(snap); err != nil {
		db.Close()
		em.Close()
		return nil, nil, nil, err
	}

	closeAll := func() {
		db.Close()
		em.Close()
	}
	return sess, db, closeAll, nil
}

// saveSession persists the session snapshot to the triage database.
func saveSession(ctx context.Context, sess *overlay.Session, db *store.Store) error {
	return db.Save(ctx, sess.Snapshot())
}

// loadConfiguredReport loads the report given by flag or config into the
// session. An empty path is an error for commands that need coverage.
func loadConfiguredReport(sess *overlay.Session, reportFlag string) error {
	path := reportFlag
	if path == "" {
		path = config.Load().ReportPath
	}
	if path == "" {
		return fmt.Errorf("no coverage report: pass --report or set report_path in config")
	}
	return sess.LoadReport(path)
}
