package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redlinehq/coverlay/internal/covreport"
	"github.com/redlinehq/coverlay/internal/render"
	"github.com/redlinehq/coverlay/internal/triage"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the classification report as Markdown",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringP("category", "c", "", "restrict to one category")
	reportCmd.Flags().String("report", "", "coverage report path for the summary block (default from config)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	sess, _, closeAll, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	// The summary block is optional: the classification report stands on
	// its own when no coverage report is configured.
	var summary *covreport.Summary
	reportFlag, _ := cmd.Flags().GetString("report")
	if err := loadConfiguredReport(sess, reportFlag); err == nil {
		summary = &sess.Report.Summary
	}

	out := cmd.OutOrStdout()
	if catName, _ := cmd.Flags().GetString("category"); catName != "" {
		cat, err := triage.ParseCategory(catName)
		if err != nil {
			return err
		}
		fmt.Fprint(out, render.Category(cat, sess.Triage.ByCategory(cat)))
		return nil
	}
	fmt.Fprint(out, render.Report(summary, sess.Triage))
	return nil
}
