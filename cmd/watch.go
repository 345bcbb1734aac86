package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redlinehq/coverlay/internal/telemetry"
	"github.com/redlinehq/coverlay/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track drift live as resolved files change on disk",
	Long: "Watch monitors every resolved source file and re-derives the line overlay\n" +
		"when a file is saved, so drift stays correct for edits made in any editor.\n" +
		"Accumulated offsets are persisted on exit.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("report", "", "coverage report path (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, db, closeAll, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	reportFlag, _ := cmd.Flags().GetString("report")
	if err := loadConfiguredReport(sess, reportFlag); err != nil {
		return err
	}

	w, err := watch.NewWatcher(sess.Tracker)
	if err != nil {
		return err
	}
	paths := sess.Tracker.Paths()
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	w.Start()
	sess.Telemetry.Record(telemetry.KindWatchStarted, "", map[string]int{"files": len(paths)})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "watching %d file(s); ctrl-c to stop\n", len(paths))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case fc := <-w.Changes:
			if fc.Changed {
				fmt.Fprintf(out, "%s: lines %d.. shifted by %+d\n", fc.Path, fc.Edit.StartLine, fc.Edit.Delta())
				// Persist eagerly; losing the last edit on a crash is
				// acceptable, losing a session of drift is not.
				if err := saveSession(ctx, sess, db); err != nil {
					return err
				}
			}
		case <-sig:
			w.Stop()
			return saveSession(ctx, sess, db)
		case <-ctx.Done():
			w.Stop()
			return saveSession(ctx, sess, db)
		}
	}
}
