package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/spf13/cobra"
)

func newTaskCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage monitored tasks",
	}
	cmd.AddCommand(newTaskAddCmd(flags), newTaskListCmd(flags), newTaskRemoveCmd(flags))
	return cmd
}

func newTaskAddCmd(flags *globalFlags) *cobra.Command {
	var (
		spec     models.TaskSpec
		disabled bool
		headers  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register a task, replacing any task with the same id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.URL = args[0]
			if spec.Name == "" {
				spec.Name = spec.URL
			}
			if disabled {
				enabled := false
				spec.Enabled = &enabled
			}
			spec.Headers = headers
			if err := config.ValidateTaskSpec(spec); err != nil {
				return err
			}
			task, err := spec.ToTask(time.Now())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.AddTask(ctx, task); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), models.NewTaskView(task))
		},
	}

	cmd.Flags().StringVar(&spec.ID, "id", "", "Task id (generated when empty)")
	cmd.Flags().StringVarP(&spec.Name, "name", "n", "", "Display name (defaults to the URL)")
	cmd.Flags().StringVarP(&spec.CheckType, "type", "t", string(models.CheckTypeFullPage), "Check type: full_page, selector, json_api or price")
	cmd.Flags().StringVarP(&spec.Selector, "selector", "s", "", "CSS selector for selector and price checks")
	cmd.Flags().StringVarP(&spec.JSONPath, "path", "p", "", "JSON path for json_api checks")
	cmd.Flags().StringVar(&spec.Presence, "presence", "", "Missing element policy: strict, availability or appearance")
	cmd.Flags().IntVarP(&spec.CheckIntervalSeconds, "interval", "i", models.DefaultCheckIntervalSeconds, "Check interval in seconds")
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "Request header as key=value (repeatable)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the task disabled")
	return cmd
}

func newTaskListCmd(flags *globalFlags) *cobra.Command {
	var (
		enabledOnly bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks := a.service.ListTasks(enabledOnly)
			if asJSON {
				views := make([]models.TaskView, 0, len(tasks))
				for _, t := range tasks {
					views = append(views, models.NewTaskView(t))
				}
				return printJSON(cmd.OutOrStdout(), views)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks registered.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tINTERVAL\tENABLED\tLAST CHECK\tURL")
			for _, t := range tasks {
				last := "never"
				if t.LastCheck != nil {
					last = t.LastCheck.Local().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n", t.ID, t.CheckType(), t.CheckInterval, t.Enabled, last, t.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Only list enabled tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newTaskRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <task-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a task; its events are kept",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.RemoveTask(ctx, args[0]); err != nil {
				return fmt.Errorf("removing %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
