package main

import (
	"fmt"

	"github.com/aleister1102/dataspy/internal/models"
	"github.com/spf13/cobra"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [task-id...]",
		Short: "Check tasks once and print the outcomes",
		Long:  "Checks the given tasks, or every enabled task when none is given, regardless of their schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := args
			if len(ids) == 0 {
				for _, t := range a.service.ListTasks(true) {
					ids = append(ids, t.ID)
				}
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No enabled tasks.")
				return nil
			}

			failed := 0
			for _, id := range ids {
				outcome, err := a.service.CheckNow(ctx, id)
				if err != nil {
					return fmt.Errorf("task %s: %w", id, err)
				}
				printOutcome(cmd, outcome)
				if outcome.Failed() {
					failed++
				}
			}
			a.service.Wait()
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(ids))
			}
			return nil
		},
	}
}

func printOutcome(cmd *cobra.Command, o models.CheckOutcome) {
	out := cmd.OutOrStdout()
	switch o.Status {
	case models.StatusChanged:
		fmt.Fprintf(out, "%-24s %-10s %s: %s -> %s\n", o.TaskID, o.Status, o.Event.ChangeType, o.Event.OldValue, o.Event.NewValue)
	case models.StatusFailed:
		fmt.Fprintf(out, "%-24s %-10s %s: %v\n", o.TaskID, o.Status, o.ErrKind, o.Err)
	default:
		fmt.Fprintf(out, "%-24s %s\n", o.TaskID, o.Status)
	}
}
