package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"

	// marketCacheTTL how long a listing snapshot is served without a refetch.
	marketCacheTTL = time.Minute
	// priceCacheTTL how long the simplified live-price map is served without a refetch.
	priceCacheTTL = 30 * time.Second

	requestTimeout    = 10 * time.Second
	rateLimitCooldown = time.Minute

	marketsChunkSize  = 50
	marketsChunkDelay = 250 * time.Millisecond

	simplePriceChunkSize  = 100
	simplePriceChunkDelay = 5 * time.Second

	// jitterFraction bounds the synthetic price movement applied when live
	// data is unavailable: +-0.1% of the cached value.
	jitterFraction = 0.001
)

// CoinGeckoClient fetches coin listings, details, batched quotes and
// simplified live prices from the CoinGecko REST API. It keeps an in-memory
// cache with separate TTLs for listings and live prices, honours the
// provider's rate limit with a process-wide cooldown, and degrades to cached
// or seeded data instead of failing when the network does.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(value decimal.Decimal) decimal.Decimal

	mu              sync.Mutex
	cachedMarket    []domain.Quote
	lastMarketFetch time.Time
	cachedPrices    map[string]domain.LivePrice
	lastPriceFetch  time.Time
	cooldownUntil   time.Time
	degraded        bool
}

// Option configures the CoinGeckoClient.
type Option func(*CoinGeckoClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *CoinGeckoClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sets the demo API key sent as a request header.
func WithAPIKey(key string) Option {
	return func(c *CoinGeckoClient) { c.apiKey = key }
}

// WithHTTPClient injects the transport, used by tests to count calls and
// simulate failures.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *CoinGeckoClient) { c.httpClient = hc }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *CoinGeckoClient) { c.now = now }
}

// WithSleep injects the inter-chunk delay, so tests do not wait for real time.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *CoinGeckoClient) { c.sleep = sleep }
}

// WithJitter injects the synthetic price movement function applied on
// live-price fallback.
func WithJitter(jitter func(value decimal.Decimal) decimal.Decimal) Option {
	return func(c *CoinGeckoClient) { c.jitter = jitter }
}

// NewCoinGeckoClient creates a market data client.
func NewCoinGeckoClient(logger *zap.Logger, opts ...Option) *CoinGeckoClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CoinGeckoClient{
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logger,
		now:          time.Now,
		sleep:        sleepContext,
		jitter:       Jitter,
		cachedPrices: make(map[string]domain.LivePrice),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Jitter applies a random +-0.1% delta, simulating continued market movement
// when real data is unavailable. The result never goes below zero.
func Jitter(value decimal.Decimal) decimal.Decimal {
	delta := decimal.NewFromFloat((fastrand.Float64()*2 - 1) * jitterFraction)
	jittered := value.Add(value.Mul(delta))
	if jittered.IsNegative() {
		return decimal.Zero
	}
	return jittered
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Degraded reports whether the most recent fetch fell back to cached or
// seeded data. The UI shows this as a soft warning, not an error.
func (c *CoinGeckoClient) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// ListMarket returns the top market listing. A listing younger than the
// market TTL is served from cache without a remote call; on any fetch failure
// the last cached listing (or the seeded set when the cache is cold) is
// returned and re-cached, so subsequent calls stay consistent within the TTL
// window.
func (c *CoinGeckoClient) ListMarket(ctx context.Context, page, perPage int) ([]domain.Quote, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 100
	}

	c.mu.Lock()
	if len(c.cachedMarket) > 0 && c.now().Sub(c.lastMarketFetch) < marketCacheTTL {
		out := cloneQuotes(c.cachedMarket)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	endpoint := fmt.Sprintf(
		"/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=%d&sparkline=false&price_change_percentage=24h",
		perPage, page)

	var payload []coinMarket
	if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
		c.logger.Warn("market listing fetch failed, falling back", zap.Error(err))

		c.mu.Lock()
		defer c.mu.Unlock()
		fallback := c.cachedMarket
		if len(fallback) == 0 {
			fallback = SeededQuotes()
		}
		c.storeMarketLocked(fallback, true)
		return cloneQuotes(fallback), nil
	}

	quotes := make([]domain.Quote, 0, len(payload))
	for _, coin := range payload {
		quotes = append(quotes, coin.toQuote())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeMarketLocked(quotes, false)
	return cloneQuotes(quotes), nil
}

// GetDetails fetches a single instrument. On failure it falls back to the
// cached listing entry, then to the seeded set, and reports ErrNotFound only
// when no fallback matches.
func (c *CoinGeckoClient) GetDetails(ctx context.Context, coinID string) (domain.Quote, error) {
	endpoint := fmt.Sprintf(
		"/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		url.PathEscape(coinID))

	var payload coinDetails
	if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
		c.logger.Warn("coin details fetch failed, falling back",
			zap.String("coin", coinID), zap.Error(err))

		c.mu.Lock()
		defer c.mu.Unlock()
		c.degraded = true
		for _, q := range c.cachedMarket {
			if q.ID == coinID {
				return q, nil
			}
		}
		for _, q := range SeededQuotes() {
			if q.ID == coinID {
				return q, nil
			}
		}
		return domain.Quote{}, errors.Wrapf(domain.ErrNotFound, "coin %s", coinID)
	}

	c.mu.Lock()
	c.degraded = false
	c.mu.Unlock()
	return payload.toQuote(), nil
}

// GetMany returns quotes for the given ids, deduplicated and in input order;
// ids with no resolvable data are omitted. A fresh listing cache is filtered
// locally with no remote call, otherwise ids are fetched in chunks of 50 with
// a fixed delay between chunks to respect the rate limit.
func (c *CoinGeckoClient) GetMany(ctx context.Context, coinIDs []string) ([]domain.Quote, error) {
	uniqueIDs := dedupe(coinIDs)
	if len(uniqueIDs) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	if len(c.cachedMarket) > 0 && c.now().Sub(c.lastMarketFetch) < marketCacheTTL {
		merged := quotesByID(c.cachedMarket)
		c.mu.Unlock()
		return pickOrdered(merged, uniqueIDs), nil
	}
	c.mu.Unlock()

	fetched := make(map[string]domain.Quote, len(uniqueIDs))
	chunks := chunk(uniqueIDs, marketsChunkSize)

	var fetchErr error
	for i, ids := range chunks {
		endpoint := fmt.Sprintf(
			"/coins/markets?vs_currency=usd&ids=%s&order=market_cap_desc&sparkline=false&price_change_percentage=24h",
			url.QueryEscape(strings.Join(ids, ",")))

		var payload []coinMarket
		if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
			fetchErr = err
			break
		}
		for _, coin := range payload {
			q := coin.toQuote()
			fetched[q.ID] = q
		}

		if len(chunks) > 1 && i < len(chunks)-1 {
			if err := c.sleep(ctx, marketsChunkDelay); err != nil {
				fetchErr = err
				break
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := quotesByID(c.cachedMarket)
	for id, q := range fetched {
		merged[id] = q
	}
	// fill still-missing ids from the seeded set
	for _, id := range uniqueIDs {
		if _, ok := merged[id]; ok {
			continue
		}
		for _, q := range SeededQuotes() {
			if q.ID == id {
				merged[id] = q
				break
			}
		}
	}
	if fetchErr != nil {
		c.logger.Warn("batched quote fetch failed, falling back", zap.Error(fetchErr))
		if len(merged) == 0 {
			for _, q := range SeededQuotes() {
				merged[q.ID] = q
			}
		}
	}

	// the re-cached listing keeps its market-cap order; ids resolved for
	// the first time follow it
	ordered := make([]domain.Quote, 0, len(merged))
	seen := make(map[string]struct{}, len(merged))
	keep := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		if q, ok := merged[id]; ok {
			ordered = append(ordered, q)
			seen[id] = struct{}{}
		}
	}
	for _, q := range c.cachedMarket {
		keep(q.ID)
	}
	for _, id := range uniqueIDs {
		keep(id)
	}
	for _, q := range SeededQuotes() {
		keep(q.ID)
	}

	c.storeMarketLocked(ordered, fetchErr != nil)
	return pickOrdered(merged, uniqueIDs), nil
}

// GetLivePrices returns the simplified price map for the given ids. A price
// cache younger than its TTL is filtered locally with no remote call;
// otherwise ids are fetched in chunks of 100 with a fixed delay between
// chunks. On failure each id with a cached prior value gets that value with a
// small random jitter applied, keeping the demo moving without real data; ids
// with no prior value are omitted.
func (c *CoinGeckoClient) GetLivePrices(ctx context.Context, coinIDs []string) (map[string]domain.LivePrice, error) {
	uniqueIDs := dedupe(coinIDs)
	if len(uniqueIDs) == 0 {
		return map[string]domain.LivePrice{}, nil
	}

	c.mu.Lock()
	if !c.lastPriceFetch.IsZero() && c.now().Sub(c.lastPriceFetch) < priceCacheTTL {
		out := make(map[string]domain.LivePrice, len(uniqueIDs))
		for _, id := range uniqueIDs {
			if lp, ok := c.cachedPrices[id]; ok {
				out[id] = lp
			}
		}
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	results := make(map[string]domain.LivePrice, len(uniqueIDs))
	chunks := chunk(uniqueIDs, simplePriceChunkSize)

	var fetchErr error
	for i, ids := range chunks {
		endpoint := fmt.Sprintf(
			"/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_market_cap=true&precision=8",
			url.QueryEscape(strings.Join(ids, ",")))

		var payload map[string]simplePrice
		if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
			fetchErr = err
			break
		}

		c.mu.Lock()
		for id, values := range payload {
			lp := domain.LivePrice{
				Price:     decimal.NewFromFloat(values.USD),
				Change:    decimal.NewFromFloat(values.USD24hChange),
				MarketCap: decimalFromPtr(values.USDMarketCap),
			}
			// a missing field falls back to the cached prior; an explicit
			// zero from the provider is kept as is
			if values.USDMarketCap == nil {
				if prior, ok := c.cachedPrices[id]; ok {
					lp.MarketCap = prior.MarketCap
				}
			}
			results[id] = lp
		}
		c.mu.Unlock()

		if len(chunks) > 1 && i < len(chunks)-1 {
			if err := c.sleep(ctx, simplePriceChunkDelay); err != nil {
				fetchErr = err
				break
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if fetchErr != nil {
		c.logger.Warn("live price fetch failed, synthesizing from cache", zap.Error(fetchErr))

		fallback := make(map[string]domain.LivePrice, len(uniqueIDs))
		for _, id := range uniqueIDs {
			prior, ok := c.cachedPrices[id]
			if !ok {
				continue
			}
			simulated := domain.LivePrice{
				Price:     c.jitter(prior.Price),
				Change:    c.jitter(prior.Change),
				MarketCap: prior.MarketCap,
			}
			fallback[id] = simulated
			c.cachedPrices[id] = simulated
		}
		c.lastPriceFetch = c.now()
		c.degraded = true
		return fallback, nil
	}

	for id, lp := range results {
		c.cachedPrices[id] = lp
	}
	c.lastPriceFetch = c.now()
	c.degraded = false
	return results, nil
}

// fetchJSON performs one GET against the provider and decodes the response.
// A cooldown set by a previous 429 fails the call immediately without a
// network round trip.
func (c *CoinGeckoClient) fetchJSON(ctx context.Context, endpoint string, target any) error {
	c.mu.Lock()
	if c.now().Before(c.cooldownUntil) {
		c.mu.Unlock()
		return domain.ErrRateLimited
	}
	c.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build market data request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return errors.Wrap(domain.ErrTimeout, err.Error())
		}
		return errors.Wrap(err, "market data request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.mu.Lock()
		c.cooldownUntil = c.now().Add(rateLimitCooldown)
		c.mu.Unlock()
		return domain.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(domain.ErrUpstream, "status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read market data response")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.Wrap(err, "decode market data response")
	}
	return nil
}

// storeMarketLocked replaces the listing snapshot and derives the
// per-instrument price map from it. Caller holds c.mu.
func (c *CoinGeckoClient) storeMarketLocked(quotes []domain.Quote, degraded bool) {
	now := c.now()
	c.cachedMarket = quotes
	c.lastMarketFetch = now
	for _, q := range quotes {
		c.cachedPrices[q.ID] = domain.LivePrice{
			Price:     q.Price,
			Change:    q.Change24h,
			MarketCap: q.MarketCap,
		}
	}
	c.lastPriceFetch = now
	c.degraded = degraded
}

// coinMarket is the provider's /coins/markets row. Numeric fields arrive as
// nullable; missing values coalesce to zero so a malformed payload degrades
// to an unexciting quote instead of an unusable one.
type coinMarket struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	Symbol                   string   `json:"symbol"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	MarketCap                *float64 `json:"market_cap"`
	TotalVolume              *float64 `json:"total_volume"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	Image                    string   `json:"image"`
}

func (m coinMarket) toQuote() domain.Quote {
	return domain.Quote{
		ID:        m.ID,
		Name:      m.Name,
		Symbol:    strings.ToUpper(m.Symbol),
		Price:     decimalFromPtr(m.CurrentPrice),
		Change24h: decimalFromPtr(m.PriceChangePercentage24h),
		MarketCap: decimalFromPtr(m.MarketCap),
		Volume:    decimalFromPtr(m.TotalVolume),
		High24h:   decimalFromPtr(m.High24h),
		Low24h:    decimalFromPtr(m.Low24h),
		Image:     m.Image,
	}
}

// coinDetails is the provider's /coins/{id} document, reduced to the fields
// the app renders.
type coinDetails struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
	} `json:"market_data"`
	Image struct {
		Small string `json:"small"`
	} `json:"image"`
}

func (d coinDetails) toQuote() domain.Quote {
	return domain.Quote{
		ID:        d.ID,
		Name:      d.Name,
		Symbol:    strings.ToUpper(d.Symbol),
		Price:     decimal.NewFromFloat(d.MarketData.CurrentPrice["usd"]),
		Change24h: decimalFromPtr(d.MarketData.PriceChangePercentage24h),
		MarketCap: decimal.NewFromFloat(d.MarketData.MarketCap["usd"]),
		Volume:    decimal.NewFromFloat(d.MarketData.TotalVolume["usd"]),
		High24h:   decimal.NewFromFloat(d.MarketData.High24h["usd"]),
		Low24h:    decimal.NewFromFloat(d.MarketData.Low24h["usd"]),
		Image:     d.Image.Small,
	}
}

// simplePrice is one entry of the provider's /simple/price response. The
// market cap is nullable so an absent field can be told apart from zero.
type simplePrice struct {
	USD          float64  `json:"usd"`
	USD24hChange float64  `json:"usd_24h_change"`
	USDMarketCap *float64 `json:"usd_market_cap"`
}

func decimalFromPtr(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

func quotesByID(quotes []domain.Quote) map[string]domain.Quote {
	out := make(map[string]domain.Quote, len(quotes))
	for _, q := range quotes {
		out[q.ID] = q
	}
	return out
}

func pickOrdered(m map[string]domain.Quote, ids []string) []domain.Quote {
	out := make([]domain.Quote, 0, len(ids))
	for _, id := range ids {
		if q, ok := m[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func cloneQuotes(quotes []domain.Quote) []domain.Quote {
	out := make([]domain.Quote, len(quotes))
	copy(out, quotes)
	return out
}
