package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/httputil"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// SinaClient scrapes the Sina Finance fund page as a quote fallback when the
// Eastmoney API misbehaves. Sina has no stable JSON endpoint for ETF IOPV,
// so this parses the rendered quote table instead.
// ⭐ SSOT: 新浪行情抓取只在这个客户端
type SinaClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewSinaClient creates a Sina Finance scraper from config.
func NewSinaClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *SinaClient {
	return &SinaClient{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.Sina.BaseURL,
	}
}

// marketPrefix maps an ETF code to Sina's market prefix.
func marketPrefix(code string) string {
	if strings.HasPrefix(code, "5") || strings.HasPrefix(code, "6") {
		return "sh"
	}
	return "sz"
}

// FetchQuote scrapes the realtime price, volume and IOPV for one ETF.
func (c *SinaClient) FetchQuote(ctx context.Context, code string) (*contracts.RealtimeQuote, error) {
	fullURL := fmt.Sprintf("%s/fund/quotes/%s%s.html", c.baseURL, marketPrefix(code), code)

	doc, err := c.fetchDocument(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewProviderError("sina_quote", err)
	}

	quote := &contracts.RealtimeQuote{Code: code}

	// 行情表：每行是 <dt>字段名</dt><dd>数值</dd>
	doc.Find("dl.quote-info dt").Each(func(i int, dt *goquery.Selection) {
		label := strings.TrimSpace(dt.Text())
		value := parseSinaNum(dt.Next().Text())

		switch label {
		case "最新价":
			quote.Price = value
		case "成交量":
			quote.Volume = value * 100 // 手 -> 股
		case "参考净值", "IOPV":
			quote.IOPV = value
		}
	})

	if quote.Price <= 0 {
		return nil, contracts.NewProviderError("sina_quote", fmt.Errorf("no price parsed for %s", code))
	}

	c.logger.WithFields(map[string]interface{}{
		"code": code, "price": quote.Price,
	}).Debug("Fetched Sina fallback quote")
	return quote, nil
}

// Listing is one raw ETF from the full market list, with the basics the
// pool filter needs. Zero fields mean the page did not publish the figure.
type Listing struct {
	Code          string
	Name          string
	FundSize      float64 // 元
	TrackingError float64 // annualized, fraction
	AvgTurnover   float64 // 元/日
}

// FetchListings scrapes the full ETF list. Columns: 代码、名称、规模(亿元)、
// 跟踪误差(%)、日均成交额(万元).
func (c *SinaClient) FetchListings(ctx context.Context) ([]Listing, error) {
	fullURL := fmt.Sprintf("%s/fund/etf/list.html", c.baseURL)

	doc, err := c.fetchDocument(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewProviderError("sina_listings", err)
	}

	listings := make([]Listing, 0, 64)
	doc.Find("table.etf-list tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		code := strings.TrimSpace(cells.Eq(0).Text())
		if code == "" {
			return
		}

		listings = append(listings, Listing{
			Code:          code,
			Name:          strings.TrimSpace(cells.Eq(1).Text()),
			FundSize:      parseSinaNum(cells.Eq(2).Text()) * 1e8,
			TrackingError: parseSinaNum(cells.Eq(3).Text()) / 100,
			AvgTurnover:   parseSinaNum(cells.Eq(4).Text()) * 1e4,
		})
	})

	if len(listings) == 0 {
		return nil, contracts.NewProviderError("sina_listings", fmt.Errorf("no rows parsed"))
	}

	c.logger.WithField("count", len(listings)).Debug("Fetched ETF market list")
	return listings, nil
}

// parseSinaNum strips thousand separators and units before parsing.
func parseSinaNum(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "手")
	s = strings.TrimSuffix(s, "元")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (c *SinaClient) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}
