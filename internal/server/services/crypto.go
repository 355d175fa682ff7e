package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type jsonGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error
}

// TickerQuery filters, orders and bounds the 24h ticker list. Bounds are
// checked by the caller; SortBy is one of volume, lastPrice or
// priceChangePercent and SortOrder is asc or desc.
type TickerQuery struct {
	Limit        int
	MinVolume    float64
	MinPrice     float64
	SymbolFilter string
	SortBy       string
	SortOrder    string
	MinChange    float64
	MaxChange    float64
}

func DefaultTickerQuery() TickerQuery {
	return TickerQuery{
		Limit:     10,
		SortBy:    "volume",
		SortOrder: "desc",
		MinChange: -100,
		MaxChange: 100,
	}
}

type Ticker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	QuoteVolume        string `json:"quoteVolume"`
}

type TickerList struct {
	Data      []Ticker `json:"data"`
	Count     int      `json:"count"`
	Timestamp string   `json:"timestamp"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order"`
}

type Chart struct {
	Timestamps []int64   `json:"timestamps"`
	Prices     []float64 `json:"prices"`
}

type rawTicker struct {
	Symbol             string      `json:"symbol"`
	LastPrice          *string     `json:"lastPrice"`
	PriceChangePercent *string     `json:"priceChangePercent"`
	Volume             *string     `json:"volume"`
	HighPrice          *string     `json:"highPrice"`
	LowPrice           *string     `json:"lowPrice"`
	QuoteVolume        *string     `json:"quoteVolume"`
	CloseTime          json.Number `json:"closeTime"`
}

func (r rawTicker) ticker() Ticker {
	return Ticker{
		Symbol:             r.Symbol,
		LastPrice:          orZero(r.LastPrice),
		PriceChangePercent: orZero(r.PriceChangePercent),
		Volume:             orZero(r.Volume),
		HighPrice:          orZero(r.HighPrice),
		LowPrice:           orZero(r.LowPrice),
		QuoteVolume:        orZero(r.QuoteVolume),
	}
}

// CryptoService proxies the Binance public market data API.
type CryptoService struct {
	client  jsonGetter
	baseURL string
}

func NewCryptoService(client jsonGetter, baseURL string) *CryptoService {
	return &CryptoService{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Tickers fetches every 24h ticker and applies q. Items whose price,
// volume or change do not parse as numbers are skipped.
func (s *CryptoService) Tickers(ctx context.Context, q TickerQuery) (*TickerList, error) {
	var raw []rawTicker
	if err := s.client.GetJSON(ctx, s.baseURL+"/api/v3/ticker/24hr", nil, &raw); err != nil {
		return nil, err
	}

	type scored struct {
		t   Ticker
		key float64
	}

	filter := strings.ToUpper(q.SymbolFilter)
	items := make([]scored, 0, len(raw))
	for _, r := range raw {
		t := r.ticker()

		change, err1 := strconv.ParseFloat(t.PriceChangePercent, 64)
		volume, err2 := strconv.ParseFloat(t.Volume, 64)
		price, err3 := strconv.ParseFloat(t.LastPrice, 64)
		if err := errors.Join(err1, err2, err3); err != nil {
			continue
		}

		if (q.MinVolume > 0 && volume < q.MinVolume) ||
			(q.MinPrice > 0 && price < q.MinPrice) ||
			change < q.MinChange || change > q.MaxChange {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToUpper(t.Symbol), filter) {
			continue
		}

		key := volume
		switch q.SortBy {
		case "lastPrice":
			key = price
		case "priceChangePercent":
			key = change
		}
		items = append(items, scored{t: t, key: key})
	}

	slices.SortStableFunc(items, func(a, b scored) int {
		if q.SortOrder == "desc" {
			return cmp.Compare(b.key, a.key)
		}
		return cmp.Compare(a.key, b.key)
	})

	if len(items) > q.Limit {
		items = items[:q.Limit]
	}

	out := &TickerList{
		Data:      make([]Ticker, 0, len(items)),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	for _, it := range items {
		out.Data = append(out.Data, it.t)
	}
	out.Count = len(out.Data)
	if len(raw) > 0 {
		out.Timestamp = raw[0].CloseTime.String()
	}
	return out, nil
}

// Ticker returns the 24h ticker of one symbol. Any upstream refusal is
// reported as common.ErrorNotFound.
func (s *CryptoService) Ticker(ctx context.Context, symbol string) (*Ticker, error) {
	var raw rawTicker
	q := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if err := s.client.GetJSON(ctx, s.baseURL+"/api/v3/ticker/24hr", q, &raw); err != nil {
		return nil, symbolErr(symbol, err)
	}
	t := raw.ticker()
	return &t, nil
}

// Chart returns open times and close prices of symbol's klines.
func (s *CryptoService) Chart(ctx context.Context, symbol, interval string, limit int) (*Chart, error) {
	var raw [][]json.RawMessage
	q := url.Values{
		"symbol":   {strings.ToUpper(symbol)},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := s.client.GetJSON(ctx, s.baseURL+"/api/v3/klines", q, &raw); err != nil {
		return nil, symbolErr(symbol, err)
	}

	chart := &Chart{
		Timestamps: make([]int64, 0, len(raw)),
		Prices:     make([]float64, 0, len(raw)),
	}
	for i, entry := range raw {
		if len(entry) < 5 {
			return nil, fmt.Errorf("%w: kline %d has %d fields", common.ErrorUpstream, i, len(entry))
		}

		var openTime int64
		var closeStr string
		if err := errors.Join(json.Unmarshal(entry[0], &openTime), json.Unmarshal(entry[4], &closeStr)); err != nil {
			return nil, fmt.Errorf("%w: kline %d: %v", common.ErrorUpstream, i, err)
		}
		price, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: kline %d: %v", common.ErrorUpstream, i, err)
		}

		chart.Timestamps = append(chart.Timestamps, openTime)
		chart.Prices = append(chart.Prices, price)
	}
	return chart, nil
}

func symbolErr(symbol string, err error) error {
	var ue *common.UpstreamError
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: Symbol %s not found", common.ErrorNotFound, symbol)
	}
	return err
}

func orZero(s *string) string {
	if s == nil {
		return "0"
	}
	return *s
}
