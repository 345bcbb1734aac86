package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redlinehq/coverlay/internal/snapshot"
	"github.com/redlinehq/coverlay/internal/telemetry"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.toml>",
	Short: "Write offsets, classifications, and reasons to a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.toml>",
	Short: "Replace session state from a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	sess, _, closeAll, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	snap := sess.Snapshot()
	if err := snapshot.SaveFile(args[0], snap); err != nil {
		return err
	}
	sess.Telemetry.Record(telemetry.KindSnapshotSaved, args[0], nil)
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d classification group(s)\n", len(snap.Classifications))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, db, closeAll, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	snap, err := snapshot.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := sess.RestoreSnapshot(snap); err != nil {
		return err
	}
	sess.Telemetry.Record(telemetry.KindSnapshotLoaded, args[0], nil)
	return saveSession(ctx, sess, db)
}
