package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/tickerbrief/internal/report"
	"github.com/mohammad-safakhou/tickerbrief/models"
)

const streamRetryMillis = 3000

// generateReport runs the full pipeline synchronously and returns the
// assembled report.
func (s *Server) generateReport(c echo.Context) error {
	ticker := c.Param("ticker")
	requestID := uuid.NewString()
	start := time.Now()
	s.logger.Printf("[%s] report requested for %s", requestID, ticker)

	rep, err := s.factory().Generate(c.Request().Context(), ticker, report.NopSink{})
	if err != nil {
		reportsTotal.WithLabelValues("error").Inc()
		code := http.StatusInternalServerError
		msg := "report generation failed"
		if errors.Is(err, report.ErrInvalidTicker) {
			code = http.StatusBadRequest
			msg = "invalid ticker symbol"
		}
		return echo.NewHTTPError(code, errorBody{
			Message:   msg,
			Error:     err.Error(),
			Ticker:    ticker,
			RequestID: requestID,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	reportsTotal.WithLabelValues("ok").Inc()
	reportDuration.Observe(time.Since(start).Seconds())
	s.logger.Printf("[%s] report for %s done in %s", requestID, ticker, time.Since(start).Round(time.Millisecond))
	return c.JSON(http.StatusOK, rep)
}

// streamReport runs the pipeline and relays its progress events as SSE
// frames. The stream ends with a terminal analysis or error event, or
// with an error frame if no event arrives within the stream timeout.
func (s *Server) streamReport(c echo.Context) error {
	ticker := c.Param("ticker")
	requestID := uuid.NewString()
	ctx := c.Request().Context()
	s.logger.Printf("[%s] stream requested for %s", requestID, ticker)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	streamClients.Inc()
	defer streamClients.Dec()

	bus := report.NewBus(64)
	defer bus.Close()

	go func() {
		_, err := s.factory().Generate(ctx, ticker, bus)
		if err != nil && errors.Is(err, report.ErrInvalidTicker) {
			// Validation failures return before the pipeline emits anything.
			bus.Emit(models.EventError, map[string]string{
				"ticker":  ticker,
				"message": err.Error(),
			})
		}
	}()

	if _, err := fmt.Fprintf(resp, "retry: %d\n\n", streamRetryMillis); err != nil {
		return nil
	}
	flusher.Flush()

	timeout := s.cfg.Server.StreamTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		event, err := bus.Next(timeout)
		if err != nil {
			if errors.Is(err, report.ErrStreamTimeout) {
				s.logger.Printf("[%s] stream for %s timed out waiting for events", requestID, ticker)
				writeEvent(resp, models.ProgressEvent{
					Type:      models.EventError,
					Data:      map[string]string{"ticker": ticker, "message": "timed out waiting for pipeline events"},
					Timestamp: time.Now(),
				})
				flusher.Flush()
			}
			return nil
		}
		if err := writeEvent(resp, event); err != nil {
			return nil
		}
		flusher.Flush()

		if event.Type == models.EventAnalysis || event.Type == models.EventError {
			return nil
		}
	}
}

// writeEvent frames one progress event as SSE.
func writeEvent(w *echo.Response, e models.ProgressEvent) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", e.Type); err != nil {
		return err
	}
	if e.Sequence > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", e.Sequence); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
