package interfaces

import (
	"context"

	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// Entity persistence contracts. Implementations: src/storage/postgres.go
// (sqlx) and the in-memory fakes used by tests.
// -----------------------------------------------------------------------------

type IAlertRepo interface {

	// Create persists a new alert.
	Create(ctx context.Context, alert models.MAlert) error

	// FindByID returns the alert or a NotFoundError.
	FindByID(ctx context.Context, id string) (models.MAlert, error)

	// FindByUser returns all alerts owned by the user.
	FindByUser(ctx context.Context, userID string) ([]models.MAlert, error)

	// Delete removes the alert. Returns a NotFoundError when the alert is
	// already gone; callers use that as the at-most-once trigger guard.
	Delete(ctx context.Context, id string) error
}

// -----------------------------------------------------------------------------

type ITradeRuleRepo interface {

	// Create persists a new rule.
	Create(ctx context.Context, rule models.MTradeRule) error

	// FindByID returns the rule or a NotFoundError.
	FindByID(ctx context.Context, id string) (models.MTradeRule, error)

	// FindByUser returns all rules owned by the user.
	FindByUser(ctx context.Context, userID string) ([]models.MTradeRule, error)

	// SetActive flips the rule's active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// Delete removes the rule. Returns a NotFoundError when absent.
	Delete(ctx context.Context, id string) error
}

// -----------------------------------------------------------------------------

type ITransactionRepo interface {

	// Create persists a transaction.
	Create(ctx context.Context, tx models.MTransaction) error

	// ForPortfolio returns the portfolio's transactions ordered newest
	// first (by date, ties broken by most recently persisted).
	ForPortfolio(ctx context.Context, portfolioID string) ([]models.MTransaction, error)
}
