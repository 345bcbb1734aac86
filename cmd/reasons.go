package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "Manage the reason vocabulary",
}

var reasonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reasons",
	Args:  cobra.NoArgs,
	RunE:  runReasonsList,
}

var reasonsAddCmd = &cobra.Command{
	Use:   "add <id> <label>",
	Short: "Add or relabel a reason",
	Args:  cobra.ExactArgs(2),
	RunE:  runReasonsAdd,
}

var reasonsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a reason (existing classifications keep its label)",
	Args:  cobra.ExactArgs(1),
	RunE:  runReasonsRemove,
}

func init() {
	reasonsCmd.AddCommand(reasonsListCmd, reasonsAddCmd, reasonsRemoveCmd)
	rootCmd.AddCommand(reasonsCmd)
}

func runReasonsList(cmd *cobra.Command, args []string) error {
	sess, _, closeAll, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	for _, r := range sess.Triage.Reasons() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.ID, r.Label)
	}
	return nil
}

func runReasonsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, db, closeAll, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	sess.Triage.AddReason(args[0], args[1])
	return saveSession(ctx, sess, db)
}

func runReasonsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, db, closeAll, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	if !sess.Triage.RemoveReason(args[0]) {
		return fmt.Errorf("no reason with id %q", args[0])
	}
	return saveSession(ctx, sess, db)
}
