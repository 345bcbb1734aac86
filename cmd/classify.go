package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/redlinehq/coverlay/internal/triage"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file> <line>",
	Short: "Classify the uncovered block containing a line",
	Long: "Classify records a triage decision for uncovered lines. By default the whole\n" +
		"contiguous uncovered block containing the line is classified; --line-only\n" +
		"restricts the decision to the single line.",
	Args: cobra.ExactArgs(2),
	RunE: runClassify,
}

var declassifyCmd = &cobra.Command{
	Use:   "declassify <file> <line>",
	Short: "Remove the classification for a line",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeclassify,
}

func init() {
	classifyCmd.Flags().StringP("category", "c", "document", "document, comment-planned, or cover-planned")
	classifyCmd.Flags().StringP("reason", "r", "", "reason (document category only)")
	classifyCmd.Flags().Bool("line-only", false, "classify only the given line, not its block")
	classifyCmd.Flags().String("report", "", "coverage report path (default from config)")
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(declassifyCmd)
}

func parseLineArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid line number %q", arg)
	}
	return n, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	line, err := parseLineArg(args[1])
	if err != nil {
		return err
	}
	catName, _ := cmd.Flags().GetString("category")
	cat, err := triage.ParseCategory(catName)
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")
	if cat == triage.Document && reason == "" {
		return fmt.Errorf("the document category requires --reason")
	}
	lineOnly, _ := cmd.Flags().GetBool("line-only")

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

	recorded, err := sess.Classify(args[0], line, cat, reason, !lineOnly)
	if err != nil {
		return err
	}
	if len(recorded) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "already classified")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "classified %d line(s): %v\n", len(recorded), recorded)
	}
	return saveSession(ctx, sess, db)
}

func runDeclassify(cmd *cobra.Command, args []string) error {
	line, err := parseLineArg(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, db, closeAll, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	if sess.Declassify(args[0], line) {
		fmt.Fprintln(cmd.OutOrStdout(), "removed")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "no classification at that line")
	}
	return saveSession(ctx, sess, db)
}
