package portfolio

import (
	"errors"
	"math"
	"sort"
	"time"

	"GreenLine/internal/model"
)

// DefaultSlippage is the one-way fractional execution cost.
const DefaultSlippage = 0.0005

// ErrNoDates is returned when the signal stream has no date inside the window.
var ErrNoDates = errors.New("no signal dates inside the simulation window")

// Params configures a simulation run. Zero Start/End leave the window open on that side.
type Params struct {
	InitialCapital float64
	Slippage       float64
	Start          time.Time
	End            time.Time
}

// Result is the simulator output.
type Result struct {
	Params Params
	Curve  []model.EquityPoint
	Trades []model.TradeRecord
}

// Simulator walks the signal stream day by day. It owns every open position.
type Simulator struct {
	params    Params
	cash      float64
	positions map[string]*model.Position
	trades    []model.TradeRecord
	curve     []model.EquityPoint
}

// NewSimulator creates a simulator holding only cash.
func NewSimulator(p Params) *Simulator {
	return &Simulator{
		params:    p,
		cash:      p.InitialCapital,
		positions: make(map[string]*model.Position),
	}
}

// Simulate runs the full backtest over signals.
func Simulate(signals model.SignalSet, p Params) (*Result, error) {
	if p.InitialCapital <= 0 {
		return nil, errors.New("initial capital must be positive")
	}
	if p.Slippage < 0 || p.Slippage >= 1 {
		return nil, errors.New("slippage must be in [0, 1)")
	}

	dates, byDate := groupByDate(signals, p.Start, p.End)
	if len(dates) == 0 {
		return nil, ErrNoDates
	}

	sim := NewSimulator(p)
	for i, d := range dates {
		sim.step(d, byDate[d], i == len(dates)-1)
	}
	return &Result{Params: p, Curve: sim.curve, Trades: sim.trades}, nil
}

func (s *Simulator) step(date time.Time, sigs []model.Signal, last bool) {
	for _, sig := range sigs {
		if pos, ok := s.positions[sig.Symbol]; ok && sig.Price > 0 {
			pos.LastPrice = sig.Price
		}
	}

	for _, sig := range sigs {
		if sig.Kind != model.SignalExit {
			continue
		}
		if _, ok := s.positions[sig.Symbol]; ok {
			s.close(sig.Symbol, date, sig.Price, sig.Reason)
		}
	}

	var entrants []model.Signal
	for _, sig := range sigs {
		if sig.Kind != model.SignalEnter || sig.Price <= 0 {
			continue
		}
		if _, ok := s.positions[sig.Symbol]; ok {
			continue
		}
		entrants = append(entrants, sig)
	}
	if len(entrants) > 0 {
		// Entrants get equity/N where N counts everything held after today's
		// entries. Holdings are trimmed pro rata when cash falls short.
		target := s.equity() / float64(len(s.positions)+len(entrants))
		if need := target*float64(len(entrants)) - s.cash; need > 0 {
			s.trim(need)
		}
		notional := math.Min(target, s.cash/float64(len(entrants)))
		for _, sig := range entrants {
			if notional <= 0 {
				break
			}
			entry := sig.Price * (1 + s.params.Slippage)
			s.cash -= notional
			s.positions[sig.Symbol] = &model.Position{
				Symbol:     sig.Symbol,
				EntryDate:  date,
				EntryPrice: entry,
				Quantity:   notional / entry,
				LastPrice:  sig.Price,
				Open:       true,
			}
		}
	}

	if last {
		for _, sym := range s.openSymbols() {
			s.close(sym, date, s.positions[sym].LastPrice, model.ExitEndOfTest)
		}
	}

	s.curve = append(s.curve, model.EquityPoint{
		Date:          date,
		Value:         s.equity(),
		Cash:          s.cash,
		OpenPositions: len(s.positions),
	})
}

func (s *Simulator) close(symbol string, date time.Time, close float64, reason model.ExitReason) {
	pos := s.positions[symbol]
	exit := close * (1 - s.params.Slippage)
	s.cash += pos.Quantity * exit
	delete(s.positions, symbol)

	s.trades = append(s.trades, model.TradeRecord{
		Symbol:     symbol,
		EntryDate:  pos.EntryDate,
		ExitDate:   date,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exit,
		Quantity:   pos.Quantity,
		Return:     exit/pos.EntryPrice - 1,
		DaysHeld:   int(date.Sub(pos.EntryDate).Hours() / 24),
		ExitReason: reason,
	})
}

// trim sells the same fraction of every open position so that roughly need is
// freed. Sales pay slippage at the last close.
func (s *Simulator) trim(need float64) {
	held := s.equity() - s.cash
	if held <= 0 {
		return
	}
	frac := math.Min(1, need/held)
	for _, pos := range s.positions {
		sold := pos.Quantity * frac
		pos.Quantity -= sold
		s.cash += sold * pos.LastPrice * (1 - s.params.Slippage)
	}
}

// equity is cash plus open positions marked at their last seen close.
func (s *Simulator) equity() float64 {
	v := s.cash
	for _, pos := range s.positions {
		v += pos.Quantity * pos.LastPrice
	}
	return v
}

func (s *Simulator) openSymbols() []string {
	out := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// groupByDate buckets signals by date inside [start, end], each bucket sorted by symbol.
func groupByDate(signals model.SignalSet, start, end time.Time) ([]time.Time, map[time.Time][]model.Signal) {
	byDate := make(map[time.Time][]model.Signal)
	for _, sigs := range signals {
		for _, sig := range sigs {
			if !start.IsZero() && sig.Date.Before(start) {
				continue
			}
			if !end.IsZero() && sig.Date.After(end) {
				continue
			}
			byDate[sig.Date] = append(byDate[sig.Date], sig)
		}
	}
	dates := make([]time.Time, 0, len(byDate))
	for d, bucket := range byDate {
		dates = append(dates, d)
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Symbol < bucket[j].Symbol })
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, byDate
}
