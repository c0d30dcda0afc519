// Package xueqiu talks to the public portfolio-tracking site: rebalancing
// history, live net value and strategy names. Session mechanics are out of
// scope; an already-valid cookie string is injected as-is on every request.
package xueqiu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/shopspring/decimal"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
	"trade-mirror/internal/types"
)

const (
	defaultBaseURL  = "https://xueqiu.com"
	transactionPath = "/service/tc/snowx/PAMID/cubes/rebalancing/history"
	navDailyPath    = "/cubes/nav_daily/all.json"
	portfolioPath   = "/p/"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// cubeInfoPattern locates the bootstrap blob the portfolio page embeds in a
// script tag.
var cubeInfoPattern = regexp.MustCompile(`(?s)SNB\.cubeInfo\s*=\s*(\{.*?\});`)

type Config struct {
	BaseURL  string
	Cookie   string
	Timeout  time.Duration
	PageSize int
}

// Client fetches strategy data from the portfolio site.
type Client struct {
	cfg Config
}

var (
	_ interfaces.HistoryFetcher   = (*Client)(nil)
	_ interfaces.NetValueFetcher  = (*Client)(nil)
	_ interfaces.StrategyResolver = (*Client)(nil)
)

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 20
	}
	return &Client{cfg: cfg}
}

// RebalancingHistory fetches the latest page of rebalancing events for a
// strategy.
func (c *Client) RebalancingHistory(ctx context.Context, strategyID string) (*types.RebalancingHistory, error) {
	params := url.Values{}
	params.Set("cube_symbol", strategyID)
	params.Set("page", "1")
	params.Set("count", strconv.Itoa(c.cfg.PageSize))

	body, err := c.fetch(ctx, c.cfg.BaseURL+transactionPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching rebalancing history for %s: %w", strategyID, err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	var history types.RebalancingHistory
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, fmt.Errorf("decoding rebalancing history for %s: %w", strategyID, err)
	}
	return &history, nil
}

// NetValue scrapes the strategy's portfolio page for its live cumulative net
// value.
func (c *Client) NetValue(ctx context.Context, strategyID string) (decimal.Decimal, error) {
	body, err := c.fetch(ctx, c.cfg.BaseURL+portfolioPath+strategyID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching portfolio page for %s: %w", strategyID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing portfolio page for %s: %w", strategyID, err)
	}

	var blob string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := cubeInfoPattern.FindStringSubmatch(s.Text()); m != nil {
			blob = m[1]
			return false
		}
		return true
	})
	if blob == "" {
		return decimal.Zero, fmt.Errorf("portfolio page for %s has no cube info", strategyID)
	}

	var info struct {
		NetValue decimal.Decimal `json:"net_value"`
	}
	if err := json.Unmarshal([]byte(blob), &info); err != nil {
		return decimal.Zero, fmt.Errorf("decoding cube info for %s: %w", strategyID, err)
	}

	logger.Debug(ctx, "Fetched portfolio net value", "strategy", strategyID, "net_value", info.NetValue.String())
	return info.NetValue, nil
}

// StrategyName resolves a strategy id via the daily-nav endpoint.
func (c *Client) StrategyName(ctx context.Context, strategyID string) (string, error) {
	params := url.Values{}
	params.Set("cube_symbol", strategyID)

	body, err := c.fetch(ctx, c.cfg.BaseURL+navDailyPath+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("fetching nav for %s: %w", strategyID, err)
	}

	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("decoding nav for %s: %w", strategyID, err)
	}
	if len(entries) == 0 || entries[0].Name == "" {
		return "", fmt.Errorf("strategy %s not found", strategyID)
	}
	return entries[0].Name, nil
}

// fetch runs one GET through a fresh collector and returns the raw body.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	col := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
	)
	col.SetRequestTimeout(c.cfg.Timeout)

	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", browserUserAgent)
		r.Headers.Set("Referer", c.cfg.BaseURL)
		if c.cfg.Cookie != "" {
			r.Headers.Set("Cookie", c.cfg.Cookie)
		}
	})

	var (
		body    []byte
		fetchEr error
	)
	col.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	col.OnError(func(r *colly.Response, err error) {
		fetchEr = err
	})

	if err := col.Visit(rawURL); err != nil {
		return nil, err
	}
	col.Wait()

	if fetchEr != nil {
		return nil, fetchEr
	}
	return body, nil
}
