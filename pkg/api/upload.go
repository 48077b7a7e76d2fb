package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ssargent/avroview/pkg/avroerr"
	"github.com/ssargent/avroview/pkg/container"
	"github.com/ssargent/avroview/pkg/result"
)

// containerDecoder decodes with the in-memory container reader
type containerDecoder struct {
	config container.ReaderConfig
}

// NewDecoder returns a Decoder applying the given limits
func NewDecoder(config container.ReaderConfig) Decoder {
	return &containerDecoder{config: config}
}

func (d *containerDecoder) Decode(ctx context.Context, data []byte) (*container.File, error) {
	return container.ReadAll(ctx, data, d.config)
}

// UploadService implements the upload operation independent of transport
type UploadService struct {
	decoder   Decoder
	extension string
	options   result.Options
	metrics   *Metrics
	logger    *slog.Logger
}

// NewUploadService creates an upload service. metrics may be nil.
func NewUploadService(config ServerConfig, decoder Decoder, metrics *Metrics) *UploadService {
	extension := config.Extension
	if extension == "" {
		extension = ".avro"
	}
	return &UploadService{
		decoder:   decoder,
		extension: extension,
		options:   result.Options{TagUnions: config.TagUnions},
		metrics:   metrics,
		logger:    config.logger(),
	}
}

// HandleUpload validates and decodes one upload. It returns the response
// body and HTTP status. Decode failures are reported in the body with
// status 200; failures outside the decoder yield 500.
func (s *UploadService) HandleUpload(ctx context.Context, upload *Upload) (interface{}, int) {
	if upload == nil || (upload.Filename == "" && len(upload.Data) == 0) {
		s.metrics.RecordUpload(outcomeRejected, 0)
		return result.ErrorPayload{Message: msgNoFilePart}, http.StatusBadRequest
	}
	if !strings.HasSuffix(upload.Filename, s.extension) {
		s.metrics.RecordUpload(outcomeRejected, len(upload.Data))
		return result.ErrorPayload{Message: msgInvalidFileType}, http.StatusBadRequest
	}

	logger := s.logger.With(
		slog.String("filename", upload.Filename),
		slog.Int("size", len(upload.Data)),
		slog.String("digest", upload.Digest()),
	)

	start := time.Now()
	file, err := s.decoder.Decode(ctx, upload.Data)
	if err != nil {
		return s.failed(ctx, logger, upload, err)
	}

	payload, err := result.Assemble(file, s.options)
	if err != nil {
		return s.failed(ctx, logger, upload, err)
	}

	elapsed := time.Since(start)
	s.metrics.RecordUpload(outcomeSuccess, len(upload.Data))
	s.metrics.RecordDecode(file.Header.Codec, payload.TotalRecords, file.Blocks, elapsed)
	logger.InfoContext(ctx, "decoded upload",
		slog.String("codec", file.Header.Codec),
		slog.Int("records", payload.TotalRecords),
		slog.Int("blocks", file.Blocks),
		slog.Duration("duration", elapsed),
	)
	return payload, http.StatusOK
}

func (s *UploadService) failed(ctx context.Context, logger *slog.Logger, upload *Upload, err error) (interface{}, int) {
	if avroerr.IsDecodeError(err) {
		kind := avroerr.KindOf(err)
		s.metrics.RecordUpload(outcomeDecodeError, len(upload.Data))
		s.metrics.RecordDecodeError(string(kind))
		logger.WarnContext(ctx, "decode failed", slog.String("kind", string(kind)), slog.Any("error", err))
		return result.FromError(err), http.StatusOK
	}

	s.metrics.RecordUpload(outcomeInternal, len(upload.Data))
	logger.ErrorContext(ctx, "upload failed", slog.Any("error", err))
	return result.ErrorPayload{Message: err.Error()}, http.StatusInternalServerError
}
