package client

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

	"golang.org/x/time/rate"

	"polynba/internal/metrics"
)

const (
	// Defaults per the Gamma API docs
	defaultGammaRateLimit = 10.0 // requests per second
	defaultGammaBurst     = 5
)

// PolymarketClient is a read-only client for the Polymarket Gamma API,
// used to resolve NBA game markets and read their prices.
type PolymarketClient struct {
	baseURL    string
	dataURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPolymarketClient creates a new Gamma API client. dataURL serves the
// holder endpoints and may be empty to disable concentration lookups.
// Non-positive rate limit values fall back to the documented defaults.
func NewPolymarketClient(baseURL, dataURL string, timeout time.Duration, rps float64, burst int) *PolymarketClient {
	if rps <= 0 {
		rps = defaultGammaRateLimit
	}
	if burst <= 0 {
		burst = defaultGammaBurst
	}

	return &PolymarketClient{
		baseURL: baseURL,
		dataURL: dataURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Market is the subset of the Gamma market payload the pipeline reads.
// Outcomes and prices arrive as JSON-encoded arrays of strings.
type Market struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	ConditionID string    `json:"conditionId"`
	Slug        string    `json:"slug"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`

	OutcomesRaw      string `json:"outcomes"`
	OutcomePricesRaw string `json:"outcomePrices"`

	Liquidity  JSONFloat `json:"liquidity"`
	Volume     JSONFloat `json:"volume"`
	Volume24hr JSONFloat `json:"volume24hr"`
}

// JSONFloat handles both numeric and string JSON values.
type JSONFloat float64

func (j *JSONFloat) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*j = JSONFloat(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*j = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*j = JSONFloat(f)
	return nil
}

func (j JSONFloat) Float64() float64 {
	return float64(j)
}

// Outcomes returns the parsed outcome labels.
func (m *Market) Outcomes() []string {
	var outcomes []string
	if m.OutcomesRaw == "" {
		return outcomes
	}
	json.Unmarshal([]byte(m.OutcomesRaw), &outcomes)
	return outcomes
}

// OutcomePrices returns the parsed outcome prices, aligned with Outcomes.
func (m *Market) OutcomePrices() []float64 {
	var raw []string
	if m.OutcomePricesRaw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(m.OutcomePricesRaw), &raw); err != nil {
		return nil
	}
	prices := make([]float64, 0, len(raw))
	for _, s := range raw {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		prices = append(prices, p)
	}
	return prices
}

// YesNoPrices returns the first two outcome prices. ok is false when the
// market does not carry a well-formed binary price pair.
func (m *Market) YesNoPrices() (yes, no float64, ok bool) {
	prices := m.OutcomePrices()
	if len(prices) < 2 {
		return 0, 0, false
	}
	return prices[0], prices[1], true
}

// PricesFor returns the binary price pair oriented so that yes is the
// outcome matching one of the given team labels. Team-vs-team markets
// carry team names as outcome labels in market-defined order, so the
// match is a case-insensitive containment check in either direction.
// Falls back to positional order when no label matches any outcome.
func (m *Market) PricesFor(teamLabels ...string) (yes, no float64, ok bool) {
	prices := m.OutcomePrices()
	if len(prices) < 2 {
		return 0, 0, false
	}

	idx := 0
	if outcomes := m.Outcomes(); len(outcomes) >= 2 {
		for i, outcome := range outcomes[:2] {
			if outcomeMatchesTeam(outcome, teamLabels) {
				idx = i
				break
			}
		}
	}

	return prices[idx], prices[1-idx], true
}

func outcomeMatchesTeam(outcome string, labels []string) bool {
	out := strings.ToLower(strings.TrimSpace(outcome))
	if out == "" {
		return false
	}
	for _, label := range labels {
		l := strings.ToLower(strings.TrimSpace(label))
		if l == "" {
			continue
		}
		if out == l || strings.Contains(out, l) || strings.Contains(l, out) {
			return true
		}
	}
	return false
}

// IsTradeable reports whether the market is open for trading.
func (m *Market) IsTradeable() bool {
	return m.Active && !m.Closed && !m.Archived
}

// MarketsFilter contains filter parameters for listing markets.
type MarketsFilter struct {
	Active  *bool
	Closed  *bool
	Slug    string
	TagSlug string
	Limit   int
	Offset  int
}

// ListMarkets fetches markets from the Gamma API.
func (c *PolymarketClient) ListMarkets(ctx context.Context, filter *MarketsFilter) ([]Market, error) {
	params := url.Values{}
	if filter != nil {
		if filter.Active != nil {
			params.Set("active", strconv.FormatBool(*filter.Active))
		}
		if filter.Closed != nil {
			params.Set("closed", strconv.FormatBool(*filter.Closed))
		}
		if filter.Slug != "" {
			params.Set("slug", filter.Slug)
		}
		if filter.TagSlug != "" {
			params.Set("tag_slug", filter.TagSlug)
		}
		if filter.Limit > 0 {
			params.Set("limit", strconv.Itoa(filter.Limit))
		}
		if filter.Offset > 0 {
			params.Set("offset", strconv.Itoa(filter.Offset))
		}
	}

	var markets []Market
	if err := c.get(ctx, c.baseURL, "/markets", params, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// GetMarket fetches a single market by its Gamma ID.
func (c *PolymarketClient) GetMarket(ctx context.Context, id string) (*Market, error) {
	var market Market
	if err := c.get(ctx, c.baseURL, "/markets/"+id, nil, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// GetMarketBySlug fetches a market by its slug.
func (c *PolymarketClient) GetMarketBySlug(ctx context.Context, slug string) (*Market, error) {
	markets, err := c.ListMarkets(ctx, &MarketsFilter{Slug: slug, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("market not found: %s", slug)
	}
	return &markets[0], nil
}

// ListTaggedMarkets pages through all tradeable markets under a tag slug.
func (c *PolymarketClient) ListTaggedMarkets(ctx context.Context, tagSlug string) ([]Market, error) {
	active := true
	closed := false
	var all []Market
	limit := 100
	offset := 0

	for {
		markets, err := c.ListMarkets(ctx, &MarketsFilter{
			Active:  &active,
			Closed:  &closed,
			TagSlug: tagSlug,
			Limit:   limit,
			Offset:  offset,
		})
		if err != nil {
			return nil, err
		}

		all = append(all, markets...)

		if len(markets) < limit {
			break
		}
		offset += limit
	}

	return all, nil
}

// Holder is one position holder in a market.
type Holder struct {
	Wallet string    `json:"proxyWallet"`
	Amount JSONFloat `json:"amount"`
}

// TopHolderShare returns the largest single holder's share of the total
// held amount for a market, in [0, 1]. Used as a crowding proxy: a market
// dominated by one wallet carries more informed-flow risk than a broadly
// held one. Returns 0 when holder data is unavailable or empty.
func (c *PolymarketClient) TopHolderShare(ctx context.Context, conditionID string) (float64, error) {
	if c.dataURL == "" {
		return 0, nil
	}

	params := url.Values{}
	params.Set("market", conditionID)
	params.Set("limit", "100")

	var payload []struct {
		Holders []Holder `json:"holders"`
	}
	if err := c.get(ctx, c.dataURL, "/holders", params, &payload); err != nil {
		return 0, fmt.Errorf("fetch holders: %w", err)
	}

	var top, total float64
	for _, side := range payload {
		for _, h := range side.Holders {
			amt := h.Amount.Float64()
			total += amt
			if amt > top {
				top = amt
			}
		}
	}
	if total == 0 {
		return 0, nil
	}
	return top / total, nil
}

// get performs a GET request and records call metrics.
func (c *PolymarketClient) get(ctx context.Context, base, path string, params url.Values, result interface{}) error {
	start := time.Now()
	err := c.doGet(ctx, base, path, params, result)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordAPICall("polymarket", endpointLabel(path), status, time.Since(start).Seconds())

	return err
}

// doGet performs a GET request with rate limiting.
func (c *PolymarketClient) doGet(ctx context.Context, base, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
