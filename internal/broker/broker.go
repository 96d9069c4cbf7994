// Package broker places orders against a brokerage account.
package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"GreenLine/internal/alpaca"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type Account struct {
	Cash        float64
	BuyingPower float64
	Equity      float64
}

type Position struct {
	Symbol      string
	Qty         float64
	MarketValue float64
}

// OrderRequest is a whole-share market order good for the day.
type OrderRequest struct {
	Symbol string
	Qty    int
	Side   Side
}

type Order struct {
	ID     string
	Symbol string
	Qty    int
	Side   Side
	Status string
}

// Gateway is the order interface used by paper mode. Implementations do not retry.
type Gateway interface {
	Account(ctx context.Context) (Account, error)
	Positions(ctx context.Context) ([]Position, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// Canceller is implemented by gateways that can cancel all open orders.
type Canceller interface {
	CancelAll(ctx context.Context) error
}

// AlpacaBroker implements Gateway over the Alpaca trading API.
type AlpacaBroker struct {
	client *alpaca.Client
}

func NewAlpacaBroker(client *alpaca.Client) *AlpacaBroker {
	return &AlpacaBroker{client: client}
}

type alpacaAccount struct {
	Cash        string `json:"cash"`
	BuyingPower string `json:"buying_power"`
	Equity      string `json:"equity"`
}

type alpacaPosition struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	MarketValue string `json:"market_value"`
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

type alpacaOrder struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Qty    string `json:"qty"`
	Side   string `json:"side"`
	Status string `json:"status"`
}

// parseNum reads Alpaca's string-encoded decimals; empty means zero.
func parseNum(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

func (b *AlpacaBroker) Account(ctx context.Context) (Account, error) {
	var raw alpacaAccount
	if err := b.client.Get(ctx, "/v2/account", nil, &raw); err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	var (
		acct Account
		err  error
	)
	if acct.Cash, err = parseNum("cash", raw.Cash); err != nil {
		return Account{}, err
	}
	if acct.BuyingPower, err = parseNum("buying_power", raw.BuyingPower); err != nil {
		return Account{}, err
	}
	if acct.Equity, err = parseNum("equity", raw.Equity); err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (b *AlpacaBroker) Positions(ctx context.Context) ([]Position, error) {
	var raw []alpacaPosition
	if err := b.client.Get(ctx, "/v2/positions", nil, &raw); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	out := make([]Position, 0, len(raw))
	for _, r := range raw {
		qty, err := parseNum("qty", r.Qty)
		if err != nil {
			return nil, err
		}
		mv, err := parseNum("market_value", r.MarketValue)
		if err != nil {
			return nil, err
		}
		out = append(out, Position{Symbol: r.Symbol, Qty: qty, MarketValue: mv})
	}
	return out, nil
}

func (b *AlpacaBroker) SubmitOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if req.Qty <= 0 {
		return Order{}, fmt.Errorf("submit %s %s: quantity %d must be positive", req.Side, req.Symbol, req.Qty)
	}
	body := alpacaOrderRequest{
		Symbol:      req.Symbol,
		Qty:         strconv.Itoa(req.Qty),
		Side:        string(req.Side),
		Type:        "market",
		TimeInForce: "day",
	}
	var raw alpacaOrder
	if err := b.client.Do(ctx, http.MethodPost, "/v2/orders", nil, body, &raw); err != nil {
		return Order{}, fmt.Errorf("submit %s %s: %w", req.Side, req.Symbol, err)
	}
	qty, _ := strconv.Atoi(raw.Qty)
	return Order{
		ID:     raw.ID,
		Symbol: raw.Symbol,
		Qty:    qty,
		Side:   Side(raw.Side),
		Status: raw.Status,
	}, nil
}

func (b *AlpacaBroker) CancelAll(ctx context.Context) error {
	if err := b.client.Do(ctx, http.MethodDelete, "/v2/orders", nil, nil, nil); err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}
	return nil
}
