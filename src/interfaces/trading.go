package interfaces

import (
	"context"

	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// ITradingService is the external exchange collaborator that executes
// orders. Implementations live outside the core; errors from it are always
// mapped to failed results by the automated-trade engine, never propagated
// into poll loops.
// -----------------------------------------------------------------------------

type ITradingService interface {

	// ExecuteTrade submits the order and returns the exchange response.
	ExecuteTrade(ctx context.Context, req models.MTradeRequest) (models.MTradeResponse, error)
}
