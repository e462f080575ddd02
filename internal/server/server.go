package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/tickerbrief/config"
	"github.com/mohammad-safakhou/tickerbrief/internal/report"
	"github.com/mohammad-safakhou/tickerbrief/models"
)

// Generator produces a report for a ticker, emitting progress to sink.
// Each request gets its own instance; the factory isolates per-request
// pipeline state.
type Generator interface {
	Generate(ctx context.Context, ticker string, sink report.Sink) (models.Report, error)
}

// GeneratorFactory builds a fresh Generator per request.
type GeneratorFactory func() Generator

// errorBody is the JSON error shape returned by report endpoints.
type errorBody struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	Ticker    string `json:"ticker,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Server hosts the report API.
type Server struct {
	cfg     *config.Config
	e       *echo.Echo
	factory GeneratorFactory
	logger  *log.Logger
}

func New(cfg *config.Config, factory GeneratorFactory) *Server {
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var body interface{} = errorBody{
			Message:   "internal server error",
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if eb, isBody := he.Message.(errorBody); isBody {
				body = eb
			} else if he.Message != nil {
				body = errorBody{
					Message:   fmt.Sprint(he.Message),
					Error:     fmt.Sprint(he.Message),
					Timestamp: time.Now().Format(time.RFC3339),
				}
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, body)
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	s := &Server{cfg: cfg, e: e, factory: factory, logger: logger}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/report/:ticker", s.generateReport)
	e.GET("/stream-report/:ticker", s.streamReport)

	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Printf("listening on %s", s.cfg.Server.Address)
	return s.e.Start(s.cfg.Server.Address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
