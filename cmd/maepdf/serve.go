package main

import (
	"time"

	"github.com/OAT7963/mae-pdf-processing/internal/api"
	"github.com/OAT7963/mae-pdf-processing/internal/config"
	"github.com/OAT7963/mae-pdf-processing/internal/extractor"
	"github.com/OAT7963/mae-pdf-processing/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion API",
		Long: `Serve exposes the converter over HTTP:

  GET  /api/health    liveness and version
  GET  /api/formats   registered statement formats
  POST /api/convert   multipart upload ("file" or "extractedText", optional "format")`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.FromContext(ctx)
			cfg := appConfig

			registry, err := config.NewRegistry(cfg.FormatFiles)
			if err != nil {
				return err
			}

			app := api.NewApp(&api.Handler{
				Registry:               registry,
				Source:                 &extractor.Extractor{DisablePdftotext: cfg.Convert.DisablePdftotext},
				MaxReconcileIterations: cfg.Convert.MaxReconcileIterations,
				Version:                version,
				Logger:                 log,
			}, api.Options{
				BodyLimit:    cfg.Server.BodyLimitMB << 20,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			})

			go func() {
				<-ctx.Done()
				log.Info().Msg("shutting down server")
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					log.Error().Err(err).Msg("server shutdown failed")
				}
			}()

			log.Info().Str("addr", cfg.Server.Addr).Int("formats", len(registry.Formats())).Msg("listening")
			return app.Listen(cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Int("body-limit-mb", 50, "maximum upload size in MB")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.body_limit_mb", cmd.Flags().Lookup("body-limit-mb"))

	return cmd
}
