package paper

import (
	"math"
	"sort"

	"GreenLine/internal/broker"
	"GreenLine/internal/model"
)

// OrderOutcome is the result of one intended order. Err is set when submission failed;
// the run carries on with the remaining symbols.
type OrderOutcome struct {
	Symbol   string
	Side     broker.Side
	Qty      int
	EstPrice float64
	DryRun   bool
	OrderID  string
	Status   string
	Skipped  string // why no order was placed, e.g. allocation below one share
	Err      error
}

// Plan is the set of orders implied by one day's signals and the account state.
type Plan struct {
	Enter       []string // ENTER symbols at or above the minimum price
	Exit        []string // EXIT symbols
	Held        []string
	Unevaluated []string // held symbols without a bar or defined indicators on the signal date
	Sells       []OrderOutcome
	Buys        []OrderOutcome
	BuyingPower float64
	AllocPerBuy float64
}

// BuildPlan sells held symbols that signal EXIT and buys ENTER symbols not already held.
// Buying power is split equally across buys and quantities round down to whole shares.
func BuildPlan(latest []model.Signal, positions []broker.Position, acct broker.Account, minPrice float64) Plan {
	var plan Plan
	price := make(map[string]float64, len(latest))
	for _, s := range latest {
		price[s.Symbol] = s.Price
		switch s.Kind {
		case model.SignalEnter:
			if s.Price >= minPrice {
				plan.Enter = append(plan.Enter, s.Symbol)
			}
		case model.SignalExit:
			plan.Exit = append(plan.Exit, s.Symbol)
		}
	}
	sort.Strings(plan.Enter)
	sort.Strings(plan.Exit)

	held := make(map[string]float64, len(positions))
	for _, p := range positions {
		if p.Qty > 0 {
			held[p.Symbol] = p.Qty
			plan.Held = append(plan.Held, p.Symbol)
		}
	}
	sort.Strings(plan.Held)

	for _, sym := range plan.Exit {
		qty, ok := held[sym]
		if !ok {
			continue
		}
		o := OrderOutcome{Symbol: sym, Side: broker.Sell, Qty: int(math.Floor(qty)), EstPrice: price[sym]}
		if o.Qty <= 0 {
			o.Skipped = "fractional position"
		}
		plan.Sells = append(plan.Sells, o)
	}

	var buys []string
	for _, sym := range plan.Enter {
		if _, ok := held[sym]; !ok {
			buys = append(buys, sym)
		}
	}
	plan.BuyingPower = acct.BuyingPower
	if plan.BuyingPower <= 0 {
		plan.BuyingPower = acct.Cash
	}
	if len(buys) > 0 {
		plan.AllocPerBuy = plan.BuyingPower / float64(len(buys))
	}
	for _, sym := range buys {
		p := price[sym]
		o := OrderOutcome{Symbol: sym, Side: broker.Buy, EstPrice: p}
		if p > 0 && plan.AllocPerBuy > 0 {
			o.Qty = int(math.Floor(plan.AllocPerBuy / p))
		}
		if o.Qty <= 0 {
			o.Skipped = "allocation below one share"
		}
		plan.Buys = append(plan.Buys, o)
	}
	return plan
}
