package api

import (
	"encoding/hex"
	"log/slog"

	"github.com/ssargent/avroview/pkg/config"
	"github.com/ssargent/avroview/pkg/container"
	"github.com/zeebo/blake3"
)

// Response messages shared by the upload operation and the HTTP layer.
const (
	msgNoFilePart      = "No file part"
	msgInvalidFileType = "Invalid file type. Please upload an Avro file."
	msgFileTooLarge    = "File too large"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string   `json:"status"`
	Codecs []string `json:"codecs"`
}

// Upload is one file submitted for decoding
type Upload struct {
	Filename string
	Data     []byte

	digest string
}

// Digest returns the hex BLAKE3-256 digest of the upload content.
func (u *Upload) Digest() string {
	if u.digest == "" {
		sum := blake3.Sum256(u.Data)
		u.digest = hex.EncodeToString(sum[:])
	}
	return u.digest
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string // empty disables authentication
	UploadField    string
	Extension      string
	MaxUploadBytes int64
	Decoder        container.ReaderConfig
	TagUnions      bool
	Logger         *slog.Logger
}

// NewServerConfig derives the server configuration from a loaded config file.
func NewServerConfig(cfg *config.Config, logger *slog.Logger) ServerConfig {
	return ServerConfig{
		Port:           cfg.Port,
		Bind:           cfg.Bind,
		APIKey:         cfg.Security.APIKey,
		UploadField:    cfg.Upload.Field,
		Extension:      cfg.Upload.Extension,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Decoder: container.ReaderConfig{
			MaxBlockBytes:        cfg.Decoder.MaxBlockBytes,
			MaxDecompressedBytes: cfg.Decoder.MaxDecompressedBytes,
			MaxRecords:           cfg.Decoder.MaxRecords,
		},
		TagUnions: cfg.Decoder.TagUnions,
		Logger:    logger,
	}
}

func (c ServerConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c ServerConfig) uploadField() string {
	if c.UploadField == "" {
		return "file"
	}
	return c.UploadField
}
