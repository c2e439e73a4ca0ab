package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/missionlens/missionlens/internal/app"
	"github.com/missionlens/missionlens/internal/config"
)

func newServeCmd() *cobra.Command {
	var (
		common commonFlags
		addr   string
		dev    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the exploration API over HTTP",
		Example: `  missionlens serve --data ./data/missions.csv
  missionlens serve --config /etc/missionlens/config.yaml --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.loadConfig(func(c *config.Config) {
				if addr != "" {
					c.HTTP.Addr = addr
				}
				if cmd.Flags().Changed("dev") {
					c.Log.Development = dev
				}
			})
			if err != nil {
				return err
			}

			logger, err := app.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			logger.Info("configuration",
				zap.String("version", version),
				zap.String("data_path", cfg.DataPath),
				zap.String("addr", cfg.HTTP.Addr),
				zap.Int("default_top_n", cfg.Explore.DefaultTopN),
				zap.Int("max_rows", cfg.Explore.MaxRows),
			)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			return application.WaitForShutdown(cmd.Context())
		},
	}

	common.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().BoolVar(&dev, "dev", false, "human-readable development logging")
	return cmd
}
