// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/inference"
	"github.com/Veraticus/heartline/internal/model"
)

const shutdownTimeout = 10 * time.Second

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Source   string    `json:"source"`
	Features []float64 `json:"features" binding:"required,min=1"`
	Row      int       `json:"row" binding:"min=0"`
}

// AnalyzeResponse is returned for a successful analysis.
type AnalyzeResponse struct {
	ID          string                 `json:"id"`
	Decision    model.ClinicalDecision `json:"decision"`
	Thresholds  ThresholdsResponse     `json:"thresholds"`
	Probability float64                `json:"probability"`
}

// ThresholdsResponse describes the active decision thresholds.
type ThresholdsResponse struct {
	AbnormalThreshold float64 `json:"abnormal_threshold"`
	UncertainMargin   float64 `json:"uncertain_margin"`
	UncertainLow      float64 `json:"uncertain_low"`
	UncertainHigh     float64 `json:"uncertain_high"`
}

// Server serves analyses over HTTP.
type Server struct {
	analyzer     *engine.Analyzer
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	router       *gin.Engine
	corsOrigins  []string
	featureCount int
}

// Option configures a Server.
type Option func(*Server)

// WithCORS allows browser clients from origins to call the API. "*"
// allows any origin.
func WithCORS(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// New builds the router. featureCount is the width every request must
// carry; zero disables the check. reg receives the service metrics and is
// served on /metrics.
func New(analyzer *engine.Analyzer, featureCount int, reg *prometheus.Registry, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("%w: analyzer is required", common.ErrMissingConfig)
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		analyzer:     analyzer,
		featureCount: featureCount,
		metrics:      NewMetrics(reg),
		gatherer:     reg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.corsOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/analyze", s.analyze)
	v1.GET("/thresholds", s.thresholds)

	return r
}

// Run listens on addr until ctx is canceled, then shuts down gracefully.
// A non-nil cert serves HTTPS.
func (s *Server) Run(ctx context.Context, addr string, cert *tls.Certificate) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cert != nil {
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr, "tls", cert != nil)
		if cert != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) analyze(c *gin.Context) {
	start := time.Now()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, reasonBadRequest, "invalid request", err)
		return
	}
	if s.featureCount > 0 && len(req.Features) != s.featureCount {
		err := fmt.Errorf("%w: got %d features, want %d", inference.ErrFeatureMismatch, len(req.Features), s.featureCount)
		s.fail(c, http.StatusBadRequest, reasonFeatureMismatch, "invalid request", err)
		return
	}

	source := req.Source
	if source == "" {
		source = "http"
	}

	analysis, err := s.analyzer.Analyze(c.Request.Context(), model.Sample{
		Source:   source,
		Row:      req.Row,
		Features: req.Features,
	})
	if err != nil {
		switch {
		case errors.Is(err, inference.ErrFeatureMismatch):
			s.fail(c, http.StatusBadRequest, reasonFeatureMismatch, "invalid request", err)
		case engine.IsInputError(err):
			s.fail(c, http.StatusBadRequest, reasonBadRequest, "invalid request", err)
		default:
			s.fail(c, http.StatusInternalServerError, reasonInference, "analysis failed", err)
		}
		return
	}

	s.metrics.decisions.WithLabelValues(string(analysis.Decision.Label)).Inc()
	s.metrics.probability.Observe(analysis.Probability)
	s.metrics.latency.Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, AnalyzeResponse{
		ID:          analysis.ID,
		Probability: analysis.Probability,
		Decision:    analysis.Decision,
		Thresholds:  s.thresholdsResponse(),
	})
}

func (s *Server) thresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.thresholdsResponse())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) thresholdsResponse() ThresholdsResponse {
	t := s.analyzer.Thresholds()
	low, high := t.UncertainBand()
	return ThresholdsResponse{
		AbnormalThreshold: t.AbnormalThreshold(),
		UncertainMargin:   t.UncertainMargin(),
		UncertainLow:      low,
		UncertainHigh:     high,
	}
}

func (s *Server) fail(c *gin.Context, status int, reason, message string, err error) {
	s.metrics.errors.WithLabelValues(reason).Inc()
	if status >= http.StatusInternalServerError {
		slog.Error("Analyze request failed", "error", err)
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
