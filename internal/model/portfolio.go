package model

import "time"

// Position is an open simulated holding. Owned by the portfolio simulator.
type Position struct {
	Symbol     string
	EntryDate  time.Time
	EntryPrice float64 // after slippage
	Quantity   float64
	LastPrice  float64 // most recent close seen, used on gap days
	Open       bool
}

// TradeRecord is a closed position. Never mutated after creation.
type TradeRecord struct {
	Symbol     string
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Return     float64
	DaysHeld   int
	ExitReason ExitReason
}

// EquityPoint is one simulated day's portfolio value.
type EquityPoint struct {
	Date          time.Time
	Value         float64
	Cash          float64
	OpenPositions int
}
