/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/ssargent/avroview/pkg/api"
	"github.com/ssargent/avroview/pkg/codec"
	"github.com/ssargent/avroview/pkg/result"
)

var errInspectFailed = errors.New("inspect failed")

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect LOCATION",
		Short: "Decode an Avro container file and print it as JSON",
		Long: `Decode a local file or an s3://bucket/key object through the same
upload operation the server runs, and print the JSON result.

The command exits non-zero when the file cannot be decoded; the error
payload is still printed.

Examples:
  avroview inspect users.avro --pretty
  avroview inspect s3://my-bucket/exports/users.avro --tag-unions
  avroview inspect --codecs`,
		Args: func(cmd *cobra.Command, args []string) error {
			if listCodecs, _ := cmd.Flags().GetBool("codecs"); listCodecs {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pretty, _ := cmd.Flags().GetBool("pretty")

			if listCodecs, _ := cmd.Flags().GetBool("codecs"); listCodecs {
				return writeJSON(cmd.OutOrStdout(), codec.Names(), pretty)
			}

			c, err := getContainer()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tag-unions") {
				cfg.Decoder.TagUnions, _ = cmd.Flags().GetBool("tag-unions")
			}

			ctx := cmd.Context()
			obj, err := c.GetStorageFactory().CreateStorage(cfg).Fetch(ctx, args[0])
			if err != nil {
				return err
			}

			serverConfig := api.NewServerConfig(cfg, newLogger(cfg.Logging, cmd.ErrOrStderr()))
			handler := c.GetUploadHandlerFactory().CreateUploadHandler(serverConfig)
			body, status := handler.HandleUpload(ctx, &api.Upload{Filename: obj.Name, Data: obj.Data})

			if err := writeJSON(cmd.OutOrStdout(), body, pretty); err != nil {
				return err
			}

			if payload, ok := body.(result.ErrorPayload); ok {
				return fmt.Errorf("%w: %s", errInspectFailed, payload.Message)
			}
			if status != http.StatusOK {
				return fmt.Errorf("%w: status %d", errInspectFailed, status)
			}
			return nil
		},
	}

	inspectCmd.Flags().Bool("pretty", false, "Indent the JSON output")
	inspectCmd.Flags().Bool("tag-unions", false, "Wrap union values in {\"<type>\": value}")
	inspectCmd.Flags().Bool("codecs", false, "List the supported compression codecs and exit")
	return inspectCmd
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
