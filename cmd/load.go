package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redlinehq/coverlay/internal/render"
)

var loadCmd = &cobra.Command{
	Use:   "load <report.xml>",
	Short: "Load a coverage report and resolve its files",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, db, closeAll, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	if err := sess.LoadReport(args[0]); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, render.Summary(sess.Report.Summary))
	fmt.Fprintf(out, "\n%d files in report, %d resolved, %d unresolved\n",
		len(sess.Report.Files), len(sess.Resolved), len(sess.Unresolved))
	for _, rp := range sess.Unresolved {
		fmt.Fprintf(out, "  unresolved: %s\n", rp)
	}

	return saveSession(ctx, sess, db)
}
