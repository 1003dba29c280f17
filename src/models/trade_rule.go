package models

import "time"

// -----------------------------------------------------------------------------
// MTradeRule
// -----------------------------------------------------------------------------

// MTradeAction is the order side taken when a rule triggers.
type MTradeAction string

const (
	TradeActionBuy  MTradeAction = "BUY"
	TradeActionSell MTradeAction = "SELL"
)

// MQuantityType says how Quantity is denominated.
type MQuantityType string

const (
	QuantityTypeUnits    MQuantityType = "UNITS"    // base asset amount
	QuantityTypeCurrency MQuantityType = "CURRENCY" // quote currency notional
)

// MTradeRule is a persisted automated trade rule. Unlike alerts, rules stay
// active after a trigger and may fire again on a later qualifying bar.
type MTradeRule struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"user_id" db:"user_id"`
	PortfolioID  string        `json:"portfolio_id" db:"portfolio_id"`
	Platform     string        `json:"platform" db:"platform"`
	Symbol       string        `json:"symbol" db:"symbol"`
	Condition    MCondition    `json:"condition" db:"condition"`
	Action       MTradeAction  `json:"action" db:"action"`
	Quantity     float64       `json:"quantity" db:"quantity"`
	QuantityType MQuantityType `json:"quantity_type" db:"quantity_type"`
	Threshold    float64       `json:"threshold" db:"threshold"`
	APIKeyID     string        `json:"api_key_id" db:"api_key_id"`
	IsActive     bool          `json:"is_active" db:"is_active"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// -----------------------------------------------------------------------------
// Trade execution outcome
// -----------------------------------------------------------------------------

// MOrderStatus is the status reported by the trading collaborator.
type MOrderStatus string

const (
	OrderStatusFilled   MOrderStatus = "FILLED"
	OrderStatusRejected MOrderStatus = "REJECTED"
	OrderStatusPending  MOrderStatus = "PENDING"
)

// MTradeRequest is the order sent to the trading collaborator.
type MTradeRequest struct {
	UserID       string        `json:"user_id"`
	PortfolioID  string        `json:"portfolio_id"`
	Symbol       string        `json:"symbol"`
	Action       MTradeAction  `json:"action"`
	Quantity     float64       `json:"quantity"`
	QuantityType MQuantityType `json:"quantity_type"`
	APIKeyID     string        `json:"api_key_id"`
}

// MTradeResponse is what the trading collaborator returns for an order.
type MTradeResponse struct {
	OrderID string       `json:"order_id"`
	Status  MOrderStatus `json:"status"`
}

// MTradeExecutionResult is the outcome of one automated trade attempt,
// dispatched to the client for both success and failure so it can tell
// them apart. A collaborator error yields Success=false, never a panic or
// a propagated error into the poll loop.
type MTradeExecutionResult struct {
	RuleID        string          `json:"rule_id"`
	Success       bool            `json:"success"`
	TradeResponse *MTradeResponse `json:"trade_response,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Error         string          `json:"error,omitempty"`
}
