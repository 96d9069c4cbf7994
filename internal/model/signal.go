package model

import "time"

// SignalKind is the discrete decision for a symbol on a date.
type SignalKind string

const (
	SignalNone  SignalKind = "NONE"
	SignalEnter SignalKind = "ENTER"
	SignalExit  SignalKind = "EXIT"
	SignalHold  SignalKind = "HOLD"
)

// ExitReason explains why a position was, or would be, closed.
type ExitReason string

const (
	ExitBelowGreenLine ExitReason = "BelowGreenLine"
	ExitMoneyWaveDown  ExitReason = "MoneyWaveDown"
	ExitBoth           ExitReason = "BelowGreenLine+MoneyWaveDown"
	ExitEndOfTest      ExitReason = "EndOfTest"
)

// Signal is the evaluator's output for one (symbol, date).
type Signal struct {
	Symbol string
	Date   time.Time
	Kind   SignalKind
	Price  float64 // close that triggered the decision
	Reason ExitReason
}

// SignalSet maps symbol to its date-ordered signals.
type SignalSet map[string][]Signal
