/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/avroview/pkg/api"
	"github.com/ssargent/avroview/pkg/config"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the avroview REST API server.

The server accepts multipart uploads of Avro container files on POST /upload
and answers with the schema, codec metadata and decoded records as JSON.

Examples:
  avroview serve
  avroview serve --port=9000 --bind=0.0.0.0
  avroview serve --config ./avroview.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyServerFlags(cmd, cfg)
			return runServer(cmd, cfg)
		},
	}

	addServerFlags(serveCmd)
	return serveCmd
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
}

// applyServerFlags overrides config values with explicitly set flags.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
}

// runServer starts the server and blocks until SIGINT or SIGTERM.
func runServer(cmd *cobra.Command, cfg *config.Config) error {
	c, err := getContainer()
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())
	serverConfig := api.NewServerConfig(cfg, logger)

	if cfg.Security.APIKey == "" {
		logger.Warn("no API key configured, uploads are unauthenticated")
	}

	return c.GetServerFactory().CreateServerStarter().StartServer(ctx, serverConfig)
}
