package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redlinehq/coverlay/internal/pathmap"
)

var statusCmd = &cobra.Command{
	Use:   "status [file]",
	Short: "Show per-file coverage counts after drift",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("report", "", "coverage report path (default from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, _, closeAll, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	reportFlag, _ := cmd.Flags().GetString("report")
	if err := loadConfiguredReport(sess, reportFlag); err != nil {
		return err
	}

	// An optional file argument restricts output to that file; either the
	// local or the report form of the path is accepted.
	filter := ""
	if len(args) == 1 {
		filter = pathmap.NormalizedSuffix(args[0], pathmap.MinSuffixDepth)
	}
	matches := func(local, report string) bool {
		if filter == "" {
			return true
		}
		return pathmap.NormalizedSuffix(local, pathmap.MinSuffixDepth) == filter ||
			pathmap.NormalizedSuffix(report, pathmap.MinSuffixDepth) == filter
	}

	out := cmd.OutOrStdout()
	for _, st := range sess.Status() {
		if !matches(st.LocalPath, st.ReportPath) {
			continue
		}
		fmt.Fprintf(out, "%s\n  covered %d, uncovered %d, partial %d, classified %d, needs attention %d\n",
			st.LocalPath, st.Covered, st.Uncovered, st.Partial, st.Classified, st.NeedAttention)
	}
	for _, rp := range sess.Unresolved {
		if !matches(rp, rp) {
			continue
		}
		fmt.Fprintf(out, "%s\n  (no local file found)\n", rp)
	}
	return nil
}
