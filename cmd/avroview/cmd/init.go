/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/avroview/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default avroview configuration",
		Long: `Write a default configuration file for avroview.

This command will:
- Create the configuration directory
- Write default server, upload and decoder settings
- Optionally generate an API key protecting uploads

Examples:
  avroview init
  avroview init --with-api-key --config ./avroview.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			withAPIKey, _ := cmd.Flags().GetBool("with-api-key")
			force, _ := cmd.Flags().GetBool("force")
			path := configPath(cmd)

			if config.ConfigExists(path) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, withAPIKey)
			if err != nil {
				return fmt.Errorf("error writing config: %w", err)
			}

			cmd.Printf("✅ Configuration written to %s\n", path)
			if cfg.Security.APIKey != "" {
				cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			}
			cmd.Printf("\nYou can now start the server with:\n")
			cmd.Printf("  avroview serve --config %s\n", path)
			return nil
		},
	}

	initCmd.Flags().Bool("with-api-key", false, "Generate an API key required for uploads")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	return initCmd
}
