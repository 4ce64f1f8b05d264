package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/spf13/cobra"
)

func newEventsCmd(flags *globalFlags) *cobra.Command {
	var (
		taskID string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recorded change events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.service.GetEvents(ctx, taskID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), events)
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTASK\tCHANGE\tOLD\tNEW")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.TaskID, e.ChangeType, e.OldValue, e.NewValue)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&taskID, "task", "t", "", "Only events of this task")
	cmd.Flags().IntVarP(&limit, "limit", "l", datastore.DefaultEventLimit, "Maximum number of events")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	cmd.AddCommand(newEventsExportCmd(flags))
	return cmd
}

func newEventsExportCmd(flags *globalFlags) *cobra.Command {
	var (
		taskID string
		since  string
		output string
		codec  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export change events to a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := datastore.EventQuery{TaskID: taskID, Limit: -1}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("--since must be RFC 3339: %w", err)
				}
				q.Since = t
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if codec == "" {
				codec = a.cfg.StorageConfig.CompressionCodec
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := datastore.NewEventExporter(a.store, codec, a.logger).Export(ctx, f, q)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				os.Remove(output)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&taskID, "task", "t", "", "Only events of this task")
	cmd.Flags().StringVar(&since, "since", "", "Only events at or after this RFC 3339 time")
	cmd.Flags().StringVarP(&output, "output", "o", "events.parquet", "Output file")
	cmd.Flags().StringVar(&codec, "codec", "", "Compression: zstd, snappy, gzip or none (default from config)")
	return cmd
}
