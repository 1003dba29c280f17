package trading

import (
	"context"
	"sync"

	"tradewatch/src/interfaces"
	"tradewatch/src/models"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ interfaces.ITradingService = (*Simulator)(nil)

// Simulator implements the trading collaborator for paper trading and
// development runs. Every order fills immediately; no external API calls.
type Simulator struct {
	mu     sync.Mutex
	orders []models.MTradeRequest
}

// -----------------------------------------------------------------------------

func NewSimulator() *Simulator {
	return &Simulator{}
}

// -----------------------------------------------------------------------------

// ExecuteTrade records the order and reports it as FILLED.
func (s *Simulator) ExecuteTrade(_ context.Context, req models.MTradeRequest) (models.MTradeResponse, error) {
	s.mu.Lock()
	s.orders = append(s.orders, req)
	s.mu.Unlock()

	return models.MTradeResponse{
		OrderID: uuid.NewString(),
		Status:  models.OrderStatusFilled,
	}, nil
}

// -----------------------------------------------------------------------------

// Orders returns every order the simulator has accepted.
func (s *Simulator) Orders() []models.MTradeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MTradeRequest, len(s.orders))
	copy(out, s.orders)
	return out
}
