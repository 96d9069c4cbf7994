package portfolio

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// Stats summarises a simulation.
type Stats struct {
	StartValue     float64 `json:"start_value"`
	EndValue       float64 `json:"end_value"`
	TotalReturn    float64 `json:"total_return"`
	CAGR           float64 `json:"cagr"`
	Volatility     float64 `json:"volatility"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	Trades         int     `json:"trades"`
	WinRate        float64 `json:"win_rate"`
	AvgTradeReturn float64 `json:"avg_trade_return"`
}

// Summarize computes return, risk and trade statistics for a result.
func Summarize(r *Result) Stats {
	st := Stats{StartValue: r.Params.InitialCapital, Trades: len(r.Trades)}
	if len(r.Curve) == 0 {
		st.EndValue = st.StartValue
		return st
	}

	values := make([]float64, len(r.Curve))
	for i, p := range r.Curve {
		values[i] = p.Value
	}
	st.EndValue = values[len(values)-1]
	st.TotalReturn = st.EndValue/st.StartValue - 1

	years := r.Curve[len(r.Curve)-1].Date.Sub(r.Curve[0].Date).Hours() / 24 / 365.25
	if years > 0 && st.EndValue > 0 {
		st.CAGR = math.Pow(st.EndValue/st.StartValue, 1/years) - 1
	}

	returns := DailyReturns(st.StartValue, values)
	if len(returns) > 1 {
		sd := stat.StdDev(returns, nil)
		st.Volatility = sd * math.Sqrt(tradingDaysPerYear)
		if sd > 0 {
			st.Sharpe = math.Sqrt(tradingDaysPerYear) * stat.Mean(returns, nil) / sd
		}
	}
	st.MaxDrawdown = MaxDrawdown(values)

	if len(r.Trades) > 0 {
		rets := make([]float64, len(r.Trades))
		wins := 0
		for i, t := range r.Trades {
			rets[i] = t.Return
			if t.Return > 0 {
				wins++
			}
		}
		st.WinRate = float64(wins) / float64(len(r.Trades))
		st.AvgTradeReturn = stat.Mean(rets, nil)
	}
	return st
}

// DailyReturns converts an equity path into simple returns, the first measured from base.
func DailyReturns(base float64, values []float64) []float64 {
	out := make([]float64, 0, len(values))
	prev := base
	for _, v := range values {
		if prev > 0 {
			out = append(out, v/prev-1)
		} else {
			out = append(out, 0)
		}
		prev = v
	}
	return out
}

// MaxDrawdown returns the deepest peak-to-trough decline as a non-positive fraction.
func MaxDrawdown(values []float64) float64 {
	var peak, dd float64
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		if peak > 0 {
			if d := v/peak - 1; d < dd {
				dd = d
			}
		}
	}
	return dd
}
