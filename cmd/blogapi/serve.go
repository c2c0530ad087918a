package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/blogapi"
)

func newServeCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := blogapi.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			cfg.Version = version

			log, err := blogapi.NewLogger(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			app := blogapi.New(cfg, blogapi.WithLogger(log))
			defer func() {
				if err := app.Close(); err != nil {
					log.Error("close", zap.Error(err))
				}
			}()

			log.Info("starting blogapi",
				zap.String("version", version),
				zap.String("env", cfg.Env),
				zap.String("database", cfg.DatabasePath),
				zap.String("cache", cfg.Cache.Backend),
			)
			return app.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", blogapi.EnvOr("BLOGAPI_CONFIG", ""), "path to a YAML config file")
	return cmd
}
