package main

import (
	"github.com/aleister1102/dataspy/internal/api"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/spf13/cobra"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var noAPI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and the query API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Start(ctx); err != nil {
				return err
			}

			if a.cfg.APIConfig.Enabled && !noAPI {
				exporter := datastore.NewEventExporter(a.store, a.cfg.StorageConfig.CompressionCodec, a.logger)
				server := api.NewServer(a.cfg.APIConfig, a.service, a.logger, api.WithExporter(exporter))
				if err := server.ListenAndServe(ctx); err != nil {
					a.logger.Error().Err(err).Msg("API server stopped")
					return err
				}
				return nil
			}

			<-ctx.Done()
			a.logger.Info().Msg("Interrupt received, shutting down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Do not start the HTTP query API")
	return cmd
}
