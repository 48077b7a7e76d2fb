package api

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hamba/avro/v2/ocf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const userSchema = `{"type":"record","name":"U","fields":[
	{"name":"id","type":"long"},
	{"name":"name","type":"string"}
]}`

type user struct {
	ID   int64  `avro:"id"`
	Name string `avro:"name"`
}

func writeUsers(t *testing.T, codec ocf.CodecName, users ...user) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(userSchema, &buf, ocf.WithCodec(codec))
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, enc.Encode(u))
	}
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() ServerConfig {
	return ServerConfig{
		UploadField:    "file",
		Extension:      ".avro",
		MaxUploadBytes: 1 << 20,
		Logger:         discardLogger(),
	}
}

// newTestRouter builds a router with its own metrics registry.
func newTestRouter(t *testing.T, config ServerConfig) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(config, NewDecoder(config.Decoder), reg, reg), reg
}

// uploadRequest builds a multipart POST /upload with one file part.
func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
