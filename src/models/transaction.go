package models

import "time"

// MTransaction is a recorded trade on a portfolio. The automated-trade
// engine resolves the transaction created by an executed order as the
// portfolio's most recent transaction by date, tie-broken by insertion
// order (Seq).
type MTransaction struct {
	ID          string    `json:"id" db:"id"`
	PortfolioID string    `json:"portfolio_id" db:"portfolio_id"`
	Symbol      string    `json:"symbol" db:"symbol"`
	Action      string    `json:"action" db:"action"`
	Quantity    float64   `json:"quantity" db:"quantity"`
	Price       float64   `json:"price" db:"price"`
	Date        time.Time `json:"date" db:"date"`
	Seq         int64     `json:"seq" db:"seq"` // persistence order, for tie-breaks
}
