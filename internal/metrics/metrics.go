package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_sessions_started_total",
			Help: "Total voice sessions started",
		},
		[]string{"tier"},
	)

	SessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_sessions_ended_total",
			Help: "Total voice sessions ended",
		},
		[]string{"tier"},
	)

	// Admission metrics
	AdmissionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_admission_rejections_total",
			Help: "Total session requests rejected by admission control",
		},
		[]string{"reason"},
	)

	UsageMinutesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_usage_minutes_consumed_total",
			Help: "Total usage minutes recorded against daily limits",
		},
		[]string{"tier"},
	)

	// Room provider metrics
	RoomRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jarvis_room_request_duration_seconds",
			Help:    "Room provider request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RoomRequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_room_request_errors_total",
			Help: "Room provider request errors",
		},
		[]string{"operation"},
	)

	// API metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_requests_total",
			Help: "Total API requests processed",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jarvis_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// Chat metrics
	ChatCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_chat_completions_total",
			Help: "Total chat completion requests proxied",
		},
		[]string{"model"},
	)

	// Worker metrics
	ConfigResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_config_resolutions_total",
			Help: "Session config resolutions by source channel",
		},
		[]string{"source"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		SessionsStarted,
		SessionsEnded,
		AdmissionRejections,
		UsageMinutesConsumed,
		RoomRequestDuration,
		RoomRequestErrors,
		RequestsTotal,
		RequestDuration,
		ChatCompletionsTotal,
		ConfigResolutions,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
