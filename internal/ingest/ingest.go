package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pallapothu30/weather-etl/internal/httputil"
	"github.com/pallapothu30/weather-etl/internal/metrics"
)

var (
	ErrResolution = errors.New("location resolution failed")
	ErrFetch      = errors.New("weather fetch failed")
)

const (
	endpointGeocoding = "geocoding"
	endpointForecast  = "forecast"
)

// FetchResult describes one upstream HTTP exchange.
type FetchResult struct {
	URL          string
	Params       url.Values
	HTTPStatus   int
	ResponseSize int
	Duration     time.Duration
}

// getJSON issues a single GET and returns the body of a 2xx response.
func getJSON(ctx context.Context, client *http.Client, endpoint, baseURL string, params url.Values) ([]byte, *FetchResult, error) {
	result := &FetchResult{URL: baseURL, Params: params}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		metrics.APILatency.WithLabelValues(endpoint).Observe(result.Duration.Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		metrics.APICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, result, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		metrics.APICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, result, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, result, fmt.Errorf("read body: %w", err)
	}
	result.ResponseSize = len(body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.APICallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return body, result, fmt.Errorf("%s request: status %d: %s", endpoint, resp.StatusCode, truncate(body, 200))
	}

	metrics.APICallsTotal.WithLabelValues(endpoint, "ok").Inc()
	return body, result, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
