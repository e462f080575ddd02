package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const quoteFixture = `{
  "quoteResponse": {
    "result": [
      {
        "regularMarketPrice": 245.5,
        "marketCap": 3700000000000,
        "forwardPE": 29.8,
        "fiftyTwoWeekLow": 164.08,
        "fiftyTwoWeekHigh": 260.1
      }
    ]
  }
}`

const chartFixture = `{
  "chart": {
    "result": [
      {
        "timestamp": [1739404800, 1739491200, 1739577600],
        "indicators": {
          "quote": [
            {"close": [243.1, null, 245.5]}
          ]
        }
      }
    ]
  }
}`

func newTestClient(t *testing.T, quoteBody, chartBody string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/chart") {
			w.Write([]byte(chartBody))
			return
		}
		w.Write([]byte(quoteBody))
	}))
	c := NewClient(time.Second, nil)
	c.quoteURL = srv.URL + "/quote"
	c.chartURL = srv.URL + "/chart"
	return c, srv
}

func TestFetchStockData(t *testing.T) {
	c, srv := newTestClient(t, quoteFixture, chartFixture)
	defer srv.Close()

	data, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if data.Ticker != "AAPL" {
		t.Errorf("unexpected ticker: %q", data.Ticker)
	}
	if data.CurrentPrice != 245.5 {
		t.Errorf("unexpected price: %v", data.CurrentPrice)
	}
	if data.FiftyTwoWeekHigh != 260.1 || data.FiftyTwoWeekLow != 164.08 {
		t.Errorf("unexpected 52w range: %v - %v", data.FiftyTwoWeekLow, data.FiftyTwoWeekHigh)
	}

	// The null close is a halted session and must be skipped.
	if len(data.History) != 2 {
		t.Fatalf("expected 2 price points, got %d", len(data.History))
	}
	if data.History[0].Date != "2025-02-13" || data.History[0].Close != 243.1 {
		t.Errorf("unexpected first point: %+v", data.History[0])
	}
}

func TestFetchUnknownTicker(t *testing.T) {
	c, srv := newTestClient(t, `{"quoteResponse":{"result":[]}}`, chartFixture)
	defer srv.Close()

	if _, err := c.Fetch(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for unknown ticker")
	}
}

func TestFetchMissingHistoryIsAnError(t *testing.T) {
	c, srv := newTestClient(t, quoteFixture, `{"chart":{"result":[]}}`)
	defer srv.Close()

	if _, err := c.Fetch(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error when history is unavailable")
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(time.Second, nil)
	c.quoteURL = srv.URL + "/quote"
	c.chartURL = srv.URL + "/chart"
	if _, err := c.Fetch(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error on server failure")
	}
}
