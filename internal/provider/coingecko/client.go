// Package coingecko implements domain.MarketDataProvider against the
// CoinGecko REST API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resolverd/resolverd/internal/domain"
)

// coinIDs maps supported ticker symbols to CoinGecko coin IDs. This is the
// closed set of assets markets can reference.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"WIF":   "dogwifcoin",
	"BONK":  "bonk",
	"JUP":   "jupiter-exchange-solana",
	"PYTH":  "pyth-network",
	"JTO":   "jito-governance-token",
	"DOGE":  "dogecoin",
	"SHIB":  "shiba-inu",
	"PEPE":  "pepe",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"NEAR":  "near",
	"APT":   "aptos",
	"SUI":   "sui",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"INJ":   "injective-protocol",
	"TIA":   "celestia",
}

// Client is the REST client for the CoinGecko price-data API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a CoinGecko client. baseURL is the API root, e.g.
// "https://api.coingecko.com/api/v3". apiKey may be empty for the public
// tier.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the data-source label recorded in resolution data.
func (c *Client) Name() string {
	return "coingecko"
}

// coinID resolves a ticker to its CoinGecko ID.
func coinID(symbol string) (string, error) {
	id, ok := coinIDs[strings.ToUpper(symbol)]
	if !ok {
		return "", fmt.Errorf("coingecko: %w: %s", domain.ErrNoSymbol, symbol)
	}
	return id, nil
}

// Current returns the latest price, 24h volume, and market cap for a token.
func (c *Client) Current(ctx context.Context, symbol string) (domain.Quote, error) {
	id, err := coinID(symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_vol", "true")
	params.Set("include_market_cap", "true")

	body, err := c.doGet(ctx, "/simple/price?"+params.Encode())
	if err != nil {
		return domain.Quote{}, fmt.Errorf("coingecko: current %s: %w", symbol, err)
	}

	var resp map[string]struct {
		USD          float64 `json:"usd"`
		USD24hVol    float64 `json:"usd_24h_vol"`
		USDMarketCap float64 `json:"usd_market_cap"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("coingecko: decode current %s: %w", symbol, err)
	}

	row, ok := resp[id]
	if !ok || row.USD <= 0 {
		return domain.Quote{}, fmt.Errorf("coingecko: %w: empty quote for %s", domain.ErrProviderUnavailable, symbol)
	}

	return domain.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     row.USD,
		Volume24h: row.USD24hVol,
		MarketCap: row.USDMarketCap,
		Timestamp: time.Now().UTC(),
	}, nil
}

// chartResponse is the market_chart/range payload: arrays of
// [unix_ms, value] pairs.
type chartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// Historical returns price and volume samples between from and to. The API
// chooses its own granularity, so the response is downsampled to the
// requested interval client-side; samples are ordered by timestamp
// ascending.
func (c *Client) Historical(ctx context.Context, symbol string, from, to time.Time, interval time.Duration) ([]domain.PriceSnapshot, []domain.VolumeSnapshot, error) {
	id, err := coinID(symbol)
	if err != nil {
		return nil, nil, err
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	path := fmt.Sprintf("/coins/%s/market_chart/range?%s", url.PathEscape(id), params.Encode())
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("coingecko: historical %s: %w", symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("coingecko: decode historical %s: %w", symbol, err)
	}
	if len(resp.Prices) == 0 {
		return nil, nil, fmt.Errorf("coingecko: %w: no samples for %s", domain.ErrProviderUnavailable, symbol)
	}

	prices := downsamplePrices(resp.Prices, interval, c.Name())
	volumes := downsampleVolumes(resp.TotalVolumes, interval, c.Name())
	return prices, volumes, nil
}

// statsResponse is the subset of the /coins/{id} payload we need.
type statsResponse struct {
	MarketData struct {
		ATH struct {
			USD float64 `json:"usd"`
		} `json:"ath"`
		ATL struct {
			USD float64 `json:"usd"`
		} `json:"atl"`
	} `json:"market_data"`
}

// Stats returns the provider-recorded all-time high and low for a token.
func (c *Client) Stats(ctx context.Context, symbol string) (domain.AssetStats, error) {
	id, err := coinID(symbol)
	if err != nil {
		return domain.AssetStats{}, err
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	path := fmt.Sprintf("/coins/%s?%s", url.PathEscape(id), params.Encode())
	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.AssetStats{}, fmt.Errorf("coingecko: stats %s: %w", symbol, err)
	}

	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.AssetStats{}, fmt.Errorf("coingecko: decode stats %s: %w", symbol, err)
	}

	return domain.AssetStats{
		Symbol:      strings.ToUpper(symbol),
		AllTimeHigh: resp.MarketData.ATH.USD,
		AllTimeLow:  resp.MarketData.ATL.USD,
		RetrievedAt: time.Now().UTC(),
	}, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: rate limited", domain.ErrProviderUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// downsamplePrices thins the raw [ms, price] pairs to at most one sample per
// interval.
func downsamplePrices(raw [][2]float64, interval time.Duration, source string) []domain.PriceSnapshot {
	out := make([]domain.PriceSnapshot, 0, len(raw))
	var last time.Time
	for _, p := range raw {
		ts := time.UnixMilli(int64(p[0])).UTC()
		if !last.IsZero() && ts.Sub(last) < interval {
			continue
		}
		out = append(out, domain.PriceSnapshot{
			Timestamp: ts,
			Price:     p[1],
			Source:    source,
		})
		last = ts
	}
	return out
}

// downsampleVolumes mirrors downsamplePrices over the total_volumes series.
func downsampleVolumes(raw [][2]float64, interval time.Duration, source string) []domain.VolumeSnapshot {
	out := make([]domain.VolumeSnapshot, 0, len(raw))
	var last time.Time
	for _, v := range raw {
		ts := time.UnixMilli(int64(v[0])).UTC()
		if !last.IsZero() && ts.Sub(last) < interval {
			continue
		}
		out = append(out, domain.VolumeSnapshot{
			Timestamp: ts,
			Volume24h: v[1],
			Source:    source,
		})
		last = ts
	}
	return out
}

// Compile-time interface check.
var _ domain.MarketDataProvider = (*Client)(nil)
