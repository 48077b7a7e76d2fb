/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/avroview/pkg/config"
)

func newUpCmd() *cobra.Command {
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap and start the avroview server",
		Long: `Bootstrap avroview by creating a configuration if it doesn't exist,
then start the REST API server. This is the recommended way to get avroview running.

Examples:
  avroview up
  avroview up --port 9000
  avroview up --config ./custom-config.yaml --with-api-key --print-keys`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ensureConfig(cmd)
			if err != nil {
				return err
			}
			applyServerFlags(cmd, cfg)

			cmd.Printf("🚀 Starting avroview server on %s:%d\n", cfg.Bind, cfg.Port)
			return runServer(cmd, cfg)
		},
	}

	addServerFlags(upCmd)
	upCmd.Flags().Bool("with-api-key", false, "Generate an API key when bootstrapping")
	upCmd.Flags().Bool("print-keys", false, "Print the generated API key to console")
	return upCmd
}

// ensureConfig loads the config file, writing a default one first when it
// is missing.
func ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)

	if config.ConfigExists(path) {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("error loading existing config: %w", err)
		}
		cmd.Printf("✅ Loaded existing configuration from %s\n", path)
		return cfg, nil
	}

	cmd.Printf("🔧 First run detected. Bootstrapping avroview...\n")
	withAPIKey, _ := cmd.Flags().GetBool("with-api-key")
	printKeys, _ := cmd.Flags().GetBool("print-keys")

	cfg, err := config.BootstrapConfig(path, withAPIKey)
	if err != nil {
		return nil, fmt.Errorf("error bootstrapping config: %w", err)
	}
	cmd.Printf("✅ Configuration created at %s\n", path)

	if printKeys && cfg.Security.APIKey != "" {
		cmd.Printf("\n🔑 API Key: %s\n", cfg.Security.APIKey)
		cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n", path)
	}
	return cfg, nil
}
