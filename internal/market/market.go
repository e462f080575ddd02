package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

const (
	defaultQuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	historyRange    = "1mo"
	historyInterval = "1d"
)

// Client fetches market snapshots from the Yahoo Finance JSON API: the
// quote endpoint for the current snapshot and the chart endpoint for a
// month of daily closes.
type Client struct {
	httpClient *http.Client
	logger     *log.Logger
	quoteURL   string
	chartURL   string
}

func NewClient(timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[MARKET] ", log.LstdFlags)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		quoteURL:   defaultQuoteURL,
		chartURL:   defaultChartURL,
	}
}

// Fetch returns the market snapshot for ticker. Both the snapshot and
// the price history are required: a ticker we cannot price is an error,
// not a partial result.
func (c *Client) Fetch(ctx context.Context, ticker string) (models.StockData, error) {
	c.logger.Printf("fetching market data for %s", ticker)

	data, err := c.fetchQuote(ctx, ticker)
	if err != nil {
		return models.StockData{}, err
	}
	history, err := c.fetchHistory(ctx, ticker)
	if err != nil {
		return models.StockData{}, err
	}
	data.History = history
	return data, nil
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			MarketCap          float64 `json:"marketCap"`
			ForwardPE          float64 `json:"forwardPE"`
			FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
			FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func (c *Client) fetchQuote(ctx context.Context, ticker string) (models.StockData, error) {
	u := c.quoteURL + "?symbols=" + url.QueryEscape(ticker)
	var qr quoteResponse
	if err := c.getJSON(ctx, u, &qr); err != nil {
		return models.StockData{}, fmt.Errorf("quote request failed: %w", err)
	}
	if len(qr.QuoteResponse.Result) == 0 {
		return models.StockData{}, fmt.Errorf("no quote data for %s", ticker)
	}
	r := qr.QuoteResponse.Result[0]
	return models.StockData{
		Ticker:           ticker,
		CurrentPrice:     r.RegularMarketPrice,
		MarketCap:        r.MarketCap,
		ForwardPE:        r.ForwardPE,
		FiftyTwoWeekLow:  r.FiftyTwoWeekLow,
		FiftyTwoWeekHigh: r.FiftyTwoWeekHigh,
	}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

func (c *Client) fetchHistory(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=%s", c.chartURL, url.PathEscape(ticker), historyRange, historyInterval)
	var cr chartResponse
	if err := c.getJSON(ctx, u, &cr); err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no price history for %s", ticker)
	}
	result := cr.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Trading halts leave null closes; skip them.
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: *closes[i],
		})
	}
	return points, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
