package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/chiptrader/pkg/retrier"
	"go.uber.org/zap"
)

const (
	defaultNewsURL = "https://min-api.cryptocompare.com/data/v2/news/?lang=EN&limit=10"
	newsTimeout    = 10 * time.Second
)

// NewsItem is one headline for the dashboard feed.
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedOn int64  `json:"published_on"`
	Image       string `json:"imageurl"`
}

// NewsClient fetches headlines from the CryptoCompare news API. The feed is
// display only: any failure degrades to an empty list.
type NewsClient struct {
	url        string
	httpClient *http.Client
	retrier    *retrier.Retrier
	logger     *zap.Logger
}

// NewNewsClient creates a news client. An empty url selects the default
// endpoint.
func NewNewsClient(url string, logger *zap.Logger) *NewsClient {
	if url == "" {
		url = defaultNewsURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NewsClient{
		url:        url,
		httpClient: &http.Client{Timeout: newsTimeout},
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(500*time.Millisecond),
		),
		logger: logger,
	}
}

type newsResponse struct {
	Data []NewsItem `json:"Data"`
}

// Latest returns the most recent headlines, or an empty slice when the feed
// is unreachable.
func (c *NewsClient) Latest(ctx context.Context) []NewsItem {
	items, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]NewsItem, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		c.logger.Warn("news fetch failed", zap.Error(err))
		return []NewsItem{}
	}
	return items
}

func (c *NewsClient) fetch(ctx context.Context) ([]NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build news request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "news request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("news endpoint returned status %d", resp.StatusCode)
	}

	var payload newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode news response")
	}
	if payload.Data == nil {
		return []NewsItem{}, nil
	}
	return payload.Data, nil
}
