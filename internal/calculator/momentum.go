package calculator

import (
	"errors"
	"fmt"

	"GreenLine/internal/model"
)

// MomentumBlend is the policy that combines multi-horizon simple returns into one score.
// Periods are in trading days; weights are normalised to sum to one.
type MomentumBlend struct {
	Periods []int
	Weights []float64
}

// DefaultBlend weights the 3/6/12 month returns 0.4/0.2/0.4.
func DefaultBlend() MomentumBlend {
	return MomentumBlend{Periods: []int{63, 126, 252}, Weights: []float64{0.4, 0.2, 0.4}}
}

// EqualBlend averages the 3/6/12 month returns.
func EqualBlend() MomentumBlend {
	return MomentumBlend{Periods: []int{63, 126, 252}, Weights: []float64{1, 1, 1}}
}

// Validate checks that the blend is usable.
func (b MomentumBlend) Validate() error {
	if len(b.Periods) == 0 {
		return errors.New("momentum blend needs at least one period")
	}
	if len(b.Periods) != len(b.Weights) {
		return fmt.Errorf("momentum blend has %d periods but %d weights", len(b.Periods), len(b.Weights))
	}
	total := 0.0
	for i, p := range b.Periods {
		if p <= 0 {
			return fmt.Errorf("momentum period %d must be positive", p)
		}
		if b.Weights[i] < 0 {
			return fmt.Errorf("momentum weight %.4f must not be negative", b.Weights[i])
		}
		total += b.Weights[i]
	}
	if total == 0 {
		return errors.New("momentum weights sum to zero")
	}
	return nil
}

// MaxPeriod returns the longest lookback of the blend.
func (b MomentumBlend) MaxPeriod() int {
	m := 0
	for _, p := range b.Periods {
		if p > m {
			m = p
		}
	}
	return m
}

// SimpleReturn computes close[t]/close[t-n] - 1 aligned to closes; undefined for t < n
// and where the base close is not positive.
func SimpleReturn(closes []float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(closes))
	for t := n; t < len(closes); t++ {
		base := closes[t-n]
		if base <= 0 {
			continue
		}
		out[t] = closes[t]/base - 1
	}
	return out, nil
}

// MomentumComposite blends the configured simple returns into one score per date.
// A date is defined only when every component return is defined.
func MomentumComposite(closes []float64, blend MomentumBlend) ([]float64, error) {
	if err := blend.Validate(); err != nil {
		return nil, err
	}
	total := 0.0
	for _, w := range blend.Weights {
		total += w
	}

	out := make([]float64, len(closes))
	components := make([][]float64, len(blend.Periods))
	for i, p := range blend.Periods {
		r, err := SimpleReturn(closes, p)
		if err != nil {
			return nil, err
		}
		components[i] = r
	}

	for t := range closes {
		score := 0.0
		for i, r := range components {
			if !model.Defined(r[t]) {
				score = model.Undefined()
				break
			}
			score += r[t] * blend.Weights[i] / total
		}
		out[t] = score
	}
	return out, nil
}
