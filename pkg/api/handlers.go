package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ssargent/avroview/pkg/codec"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// Server holds the API server state
type Server struct {
	uploads UploadHandler
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(config ServerConfig, decoder Decoder, metrics *Metrics) *Server {
	return &Server{
		uploads: NewUploadService(config, decoder, metrics),
		config:  config,
		metrics: metrics,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API and the supported codecs
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Codecs: codec.Names()})
}

// handleUpload godoc
//
//	@Summary		Decode an Avro container file
//	@Description	Upload an Avro object container file and receive its schema, codec, sync marker and records as JSON.
//	@Description	Decode failures are reported as {"error": "An error occurred: ..."} with status 200.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Avro container file (.avro)"
//	@Success		200		{object}	result.Payload
//	@Failure		400		{object}	result.ErrorPayload
//	@Failure		401		{object}	result.ErrorPayload
//	@Failure		413		{object}	result.ErrorPayload
//	@Failure		500		{object}	result.ErrorPayload
//	@Security		ApiKeyAuth
//	@Router			/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.rejectForm(w, err)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(s.config.uploadField())
	if err != nil {
		s.metrics.RecordUpload(outcomeRejected, 0)
		sendError(w, msgNoFilePart, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.rejectForm(w, err)
		return
	}

	upload := &Upload{Filename: header.Filename, Data: data}
	w.Header().Set("X-Content-Digest", upload.Digest())

	body, status := s.uploads.HandleUpload(r.Context(), upload)
	sendJSON(w, status, body)
}

func (s *Server) rejectForm(w http.ResponseWriter, err error) {
	if isTooLarge(err) {
		s.metrics.RecordUpload(outcomeTooLarge, 0)
		sendError(w, msgFileTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	s.metrics.RecordUpload(outcomeRejected, 0)
	sendError(w, msgNoFilePart, http.StatusBadRequest)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart does not always wrap the reader error
	return strings.Contains(err.Error(), "request body too large")
}
