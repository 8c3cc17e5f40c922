package ibge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
)

// Client fetches raw documents from IBGE endpoints. It never retries.
type Client struct {
	http    *resty.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a client with a bounded per-request timeout.
func NewClient(timeout time.Duration, userAgent string, metrics *observability.Metrics, logger *slog.Logger) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/json,application/javascript;q=0.9,*/*;q=0.8")

	return &Client{
		http:    client,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch GETs rawURL and returns the body as UTF-8 text. Connection failures
// and non-2xx responses are reported as domain.ErrFetch.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	host := hostOf(rawURL)
	c.logger.Info("fetching", "url", rawURL)

	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		Get(rawURL)
	c.metrics.FetchDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(host, "error").Inc()
		return "", fmt.Errorf("%w: GET %s: %v", domain.ErrFetch, rawURL, err)
	}

	if !res.IsSuccess() {
		c.metrics.FetchRequests.WithLabelValues(host, "error").Inc()
		return "", fmt.Errorf("%w: GET %s: status %d", domain.ErrFetch, rawURL, res.StatusCode())
	}

	c.metrics.FetchRequests.WithLabelValues(host, "success").Inc()
	c.logger.Debug("fetched", "url", rawURL, "bytes", len(res.Body()), "duration", time.Since(start))
	return strings.ToValidUTF8(string(res.Body()), "\uFFFD"), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
