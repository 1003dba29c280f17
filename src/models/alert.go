package models

import "time"

// -----------------------------------------------------------------------------
// Conditions
// -----------------------------------------------------------------------------

// MCondition is the trigger predicate shared by alerts and trade rules.
type MCondition string

const (
	ConditionPriceAbove MCondition = "PRICE_ABOVE"
	ConditionPriceBelow MCondition = "PRICE_BELOW"
)

// Matches reports whether close satisfies the condition against threshold.
// Equality is never a trigger.
func (c MCondition) Matches(close, threshold float64) bool {
	switch c {
	case ConditionPriceAbove:
		return close > threshold
	case ConditionPriceBelow:
		return close < threshold
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// MAlert
// -----------------------------------------------------------------------------

// MAlert is a persisted single-shot price alert. It is deleted upon trigger;
// deletion is the linearization point guarding against double notification
// when poll passes race on the same alert.
type MAlert struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Platform  string     `json:"platform" db:"platform"`
	Symbol    string     `json:"symbol" db:"symbol"`
	Condition MCondition `json:"condition" db:"condition"`
	Threshold float64    `json:"threshold" db:"threshold"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
