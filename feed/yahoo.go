package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/market"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider reads the public v8 chart endpoint, one request per ticker,
// paced by a token bucket and fanned out to a few workers.
type YahooProvider struct {
	BaseURL     string
	HTTP        *http.Client
	Concurrency int

	limiter *rate.Limiter
}

func NewYahoo(baseURL string, timeout time.Duration, rps float64, concurrency int) *YahooProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 5
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &YahooProvider{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTP:        &http.Client{Timeout: timeout},
		Concurrency: concurrency,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type chartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(v []*float64, i int) float64 {
	if i >= len(v) || v[i] == nil {
		return math.NaN()
	}
	return *v[i]
}

func (p *YahooProvider) fetchOne(ctx context.Context, ticker string, interval Interval, rng string) (market.Series, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s", p.BaseURL, url.PathEscape(ticker))
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", string(interval))
	u += "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (sentinel)")
	req.Header.Set("Accept", "application/json")

	httpClient := p.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, fmt.Errorf("yahoo chart %s http %d: %s", ticker, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr chartResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: decode: %w", ticker, err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", ticker, cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, ErrNoData)
	}

	res := cr.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	out := make(market.Series, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		out = append(out, market.Candle{
			Time:   time.Unix(ts, 0).In(market.IST),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}
	return out, nil
}

// Fetch requests every ticker. Tickers that fail are logged and omitted; the
// call errors only when nothing at all came back.
func (p *YahooProvider) Fetch(ctx context.Context, tickers []string, interval Interval, rng string) (map[string]market.Series, error) {
	out := make(map[string]market.Series, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		failed   int
	)
	sem := make(chan struct{}, p.Concurrency)
	for _, ticker := range tickers {
		wg.Add(1)
		sem <- struct{}{}
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			s, err := p.fetchOne(ctx, ticker, interval, rng)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				log.Debug().Err(err).Str("ticker", ticker).Str("interval", string(interval)).Msg("ticker fetch failed")
				return
			}
			out[ticker] = s
		}(ticker)
	}
	wg.Wait()

	if failed == len(tickers) {
		return nil, fmt.Errorf("yahoo: all %d requests failed: %w", failed, firstErr)
	}
	return out, nil
}
