package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"GreenLine/internal/alpaca"
	"GreenLine/internal/model"
)

const (
	DefaultChunkSize = 200
	pageLimit        = 10000
)

// AlpacaStore reads adjusted daily bars from the Alpaca market data API.
type AlpacaStore struct {
	client    *alpaca.Client
	ChunkSize int
}

// NewAlpacaStore wraps a data API client.
func NewAlpacaStore(client *alpaca.Client) *AlpacaStore {
	return &AlpacaStore{client: client, ChunkSize: DefaultChunkSize}
}

func (s *AlpacaStore) Name() string { return "alpaca" }

type alpacaBar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

type alpacaBarsPage struct {
	Bars          map[string][]alpacaBar `json:"bars"`
	NextPageToken *string                `json:"next_page_token"`
}

func (s *AlpacaStore) GetBars(ctx context.Context, symbol string, start, end time.Time, feed string) (model.BarSeries, error) {
	panel, err := s.GetBarsMulti(ctx, []string{symbol}, start, end, feed)
	if err != nil {
		return model.BarSeries{Symbol: symbol}, err
	}
	series, ok := panel[symbol]
	if !ok {
		return model.BarSeries{Symbol: symbol}, nil
	}
	return series, nil
}

// GetBarsMulti requests symbols in chunks and follows next_page_token until exhausted.
// Symbols without data are absent from the result.
func (s *AlpacaStore) GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, feed string) (model.Panel, error) {
	chunk := s.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	raw := make(map[string][]model.OHLCV)
	for i := 0; i < len(symbols); i += chunk {
		j := i + chunk
		if j > len(symbols) {
			j = len(symbols)
		}
		if err := s.fetchChunk(ctx, symbols[i:j], start, end, feed, raw); err != nil {
			return nil, err
		}
	}

	panel := make(model.Panel, len(raw))
	for sym, bars := range raw {
		series := Normalize(sym, bars)
		if !series.Empty() {
			panel[sym] = series
		}
	}
	return panel, nil
}

func (s *AlpacaStore) fetchChunk(ctx context.Context, symbols []string, start, end time.Time, feed string, into map[string][]model.OHLCV) error {
	if feed == "" {
		feed = alpaca.DefaultFeed
	}
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("timeframe", "1Day")
	q.Set("start", model.Day(start).Format(time.RFC3339))
	// end is inclusive of its whole day
	q.Set("end", model.Day(end).Add(24*time.Hour-time.Second).Format(time.RFC3339))
	q.Set("adjustment", "all")
	q.Set("limit", fmt.Sprint(pageLimit))
	q.Set("feed", feed)

	for {
		var page alpacaBarsPage
		if err := s.client.Get(ctx, "/v2/stocks/bars", q, &page); err != nil {
			if alpaca.BreakerOpen(err) {
				return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
			}
			return fmt.Errorf("alpaca bars: %w", err)
		}
		for sym, bars := range page.Bars {
			for _, b := range bars {
				into[sym] = append(into[sym], model.OHLCV{
					Time:   b.Time,
					Open:   b.Open,
					High:   b.High,
					Low:    b.Low,
					Close:  b.Close,
					Volume: b.Volume,
				})
			}
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			return nil
		}
		q.Set("page_token", *page.NextPageToken)
	}
}

// AlpacaAssets lists tradable US equities from the trading API.
type AlpacaAssets struct {
	client *alpaca.Client
}

// NewAlpacaAssets wraps a trading API client.
func NewAlpacaAssets(client *alpaca.Client) *AlpacaAssets {
	return &AlpacaAssets{client: client}
}

type alpacaAsset struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Tradable bool   `json:"tradable"`
}

// ListAssets returns active, tradable US equities in API order.
func (a *AlpacaAssets) ListAssets(ctx context.Context) ([]Asset, error) {
	q := url.Values{}
	q.Set("status", "active")
	q.Set("asset_class", "us_equity")

	var raw []alpacaAsset
	if err := a.client.Get(ctx, "/v2/assets", q, &raw); err != nil {
		return nil, fmt.Errorf("alpaca assets: %w", err)
	}
	assets := make([]Asset, 0, len(raw))
	for _, r := range raw {
		if !r.Tradable || r.Symbol == "" {
			continue
		}
		assets = append(assets, Asset{Symbol: r.Symbol, Exchange: r.Exchange, Tradable: r.Tradable})
	}
	return assets, nil
}
