package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/httputil"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// EastmoneyClient pulls ETF quotes and daily klines from the Eastmoney push2
// API. All requests go through a client-side limiter; Eastmoney bans IPs that
// hammer the endpoint.
// ⭐ SSOT: Eastmoney 接口调用只在这个客户端
type EastmoneyClient struct {
	httpClient *httputil.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
	baseURL    string
	histURL    string
}

// NewEastmoneyClient creates an Eastmoney client from config.
func NewEastmoneyClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *EastmoneyClient {
	rps := cfg.Eastmoney.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &EastmoneyClient{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:     log,
		baseURL:    cfg.Eastmoney.BaseURL,
		histURL:    "https://push2his.eastmoney.com",
	}
}

// secID maps an ETF code to Eastmoney's market-prefixed id:
// 上交所基金以5开头，深交所以1开头.
func secID(code string) string {
	if strings.HasPrefix(code, "5") || strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

type klineResponse struct {
	Data struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchSeries fetches the daily forward-adjusted kline series, oldest first.
func (c *EastmoneyClient) FetchSeries(ctx context.Context, code string) (contracts.InstrumentSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// klt=101 日线, fqt=1 前复权, 120根足够覆盖所有指标窗口
	fullURL := fmt.Sprintf(
		"%s/api/qt/stock/kline/get?secid=%s&klt=101&fqt=1&lmt=120&end=20500101&fields1=f1,f2,f3&fields2=f51,f52,f53,f54,f55,f56",
		c.histURL, secID(code),
	)

	body, err := c.fetchJSON(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewProviderError("eastmoney_kline", err)
	}

	var resp klineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, contracts.NewProviderError("eastmoney_kline", fmt.Errorf("decode: %w", err))
	}

	series := make(contracts.InstrumentSeries, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			c.logger.WithError(err).WithField("code", code).Debug("Skipping malformed kline")
			continue
		}
		series = append(series, bar)
	}
	if len(series) == 0 {
		return nil, contracts.NewProviderError("eastmoney_kline", fmt.Errorf("empty series for %s", code))
	}

	c.logger.WithFields(map[string]interface{}{
		"code": code, "bars": len(series),
	}).Debug("Fetched kline series")
	return series, nil
}

// parseKline parses one "date,open,close,high,low,volume" entry.
func parseKline(line string) (contracts.Bar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return contracts.Bar{}, fmt.Errorf("kline has %d fields", len(parts))
	}

	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return contracts.Bar{}, fmt.Errorf("kline date %q: %w", parts[0], err)
	}

	nums := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return contracts.Bar{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		nums[i] = v
	}

	return contracts.Bar{
		Date:   date,
		Open:   nums[0],
		Close:  nums[1],
		High:   nums[2],
		Low:    nums[3],
		Volume: nums[4] * 100, // 手 -> 股
	}, nil
}

type quoteResponse struct {
	Data struct {
		Price  float64 `json:"f43"`  // 最新价
		Volume float64 `json:"f47"`  // 成交量（手）
		IOPV   float64 `json:"f297"` // 基金参考净值，部分品种为0
	} `json:"data"`
}

// FetchQuote fetches the realtime snapshot. fltt=2 makes Eastmoney return
// decimal floats instead of scaled integers.
func (c *EastmoneyClient) FetchQuote(ctx context.Context, code string) (*contracts.RealtimeQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf(
		"%s/api/qt/stock/get?secid=%s&fltt=2&fields=f43,f47,f297",
		c.baseURL, secID(code),
	)

	body, err := c.fetchJSON(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewProviderError("eastmoney_quote", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, contracts.NewProviderError("eastmoney_quote", fmt.Errorf("decode: %w", err))
	}
	if resp.Data.Price <= 0 {
		return nil, contracts.NewProviderError("eastmoney_quote", fmt.Errorf("no price for %s", code))
	}

	return &contracts.RealtimeQuote{
		Code:   code,
		Price:  resp.Data.Price,
		IOPV:   resp.Data.IOPV,
		Volume: resp.Data.Volume * 100,
	}, nil
}

type valuationResponse struct {
	Data struct {
		Percentile float64 `json:"pe_percentile"`
	} `json:"data"`
}

// FetchValuation fetches the tracked index's PE percentile (0-100).
func (c *EastmoneyClient) FetchValuation(ctx context.Context, code string) (*contracts.Valuation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/api/qt/fund/valuation?secid=%s", c.baseURL, secID(code))

	body, err := c.fetchJSON(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewProviderError("eastmoney_valuation", err)
	}

	var resp valuationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, contracts.NewProviderError("eastmoney_valuation", fmt.Errorf("decode: %w", err))
	}

	return &contracts.Valuation{Code: code, Percentile: resp.Data.Percentile}, nil
}

func (c *EastmoneyClient) fetchJSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
