package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Upload outcomes used as metric labels.
const (
	outcomeSuccess     = "success"
	outcomeDecodeError = "decode_error"
	outcomeRejected    = "rejected"
	outcomeTooLarge    = "too_large"
	outcomeInternal    = "internal_error"
)

// Metrics holds all Prometheus metrics for the API. A nil *Metrics records
// nothing.
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Upload and decode metrics
	uploadsTotal      *prometheus.CounterVec
	uploadSizeBytes   prometheus.Histogram
	decodeErrorsTotal *prometheus.CounterVec
	decodeDuration    *prometheus.HistogramVec
	recordsDecoded    *prometheus.CounterVec
	blocksDecoded     *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "avroview_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "avroview_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_uploads_total",
				Help: "Total number of uploads by outcome",
			},
			[]string{"outcome"},
		),

		uploadSizeBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "avroview_upload_size_bytes",
				Help:    "Size of uploaded container files",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),

		decodeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_decode_errors_total",
				Help: "Total number of failed decodes by error kind",
			},
			[]string{"kind"},
		),

		decodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "avroview_decode_duration_seconds",
				Help:    "Time spent decoding a container file",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"codec"},
		),

		recordsDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_records_decoded_total",
				Help: "Total number of records decoded",
			},
			[]string{"codec"},
		),

		blocksDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_blocks_decoded_total",
				Help: "Total number of data blocks decoded",
			},
			[]string{"codec"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avroview_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordUpload records the outcome of one upload
func (m *Metrics) RecordUpload(outcome string, size int) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if size > 0 {
		m.uploadSizeBytes.Observe(float64(size))
	}
}

// RecordDecodeError records a failed decode
func (m *Metrics) RecordDecodeError(kind string) {
	if m == nil {
		return
	}
	m.decodeErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordDecode records a successful decode
func (m *Metrics) RecordDecode(codec string, records, blocks int, duration time.Duration) {
	if m == nil {
		return
	}
	m.decodeDuration.WithLabelValues(codec).Observe(duration.Seconds())
	m.recordsDecoded.WithLabelValues(codec).Add(float64(records))
	m.blocksDecoded.WithLabelValues(codec).Add(float64(blocks))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)
			m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
