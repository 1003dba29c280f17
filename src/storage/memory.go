package storage

import (
	"context"
	"sort"
	"sync"

	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// In-memory repositories
// -----------------------------------------------------------------------------
// Used when no Postgres DSN is configured (single-node and development
// runs) and by the test suites. Semantics match the Postgres
// implementations, including NotFound on deleting an absent entity.

type MemoryAlertRepo struct {
	mu     sync.RWMutex
	alerts map[string]models.MAlert
}

var _ interfaces.IAlertRepo = (*MemoryAlertRepo)(nil)

func NewMemoryAlertRepo() *MemoryAlertRepo {
	return &MemoryAlertRepo{alerts: make(map[string]models.MAlert)}
}

func (r *MemoryAlertRepo) Create(_ context.Context, alert models.MAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID] = alert
	return nil
}

func (r *MemoryAlertRepo) FindByID(_ context.Context, id string) (models.MAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.alerts[id]
	if !ok {
		return models.MAlert{}, helpers.NewNotFound("alert %s not found", id)
	}
	return alert, nil
}

func (r *MemoryAlertRepo) FindByUser(_ context.Context, userID string) ([]models.MAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []models.MAlert
	for _, a := range r.alerts {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryAlertRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[id]; !ok {
		return helpers.NewNotFound("alert %s not found", id)
	}
	delete(r.alerts, id)
	return nil
}

// -----------------------------------------------------------------------------

type MemoryTradeRuleRepo struct {
	mu    sync.RWMutex
	rules map[string]models.MTradeRule
}

var _ interfaces.ITradeRuleRepo = (*MemoryTradeRuleRepo)(nil)

func NewMemoryTradeRuleRepo() *MemoryTradeRuleRepo {
	return &MemoryTradeRuleRepo{rules: make(map[string]models.MTradeRule)}
}

func (r *MemoryTradeRuleRepo) Create(_ context.Context, rule models.MTradeRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *MemoryTradeRuleRepo) FindByID(_ context.Context, id string) (models.MTradeRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return models.MTradeRule{}, helpers.NewNotFound("trade rule %s not found", id)
	}
	return rule, nil
}

func (r *MemoryTradeRuleRepo) FindByUser(_ context.Context, userID string) ([]models.MTradeRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []models.MTradeRule
	for _, rule := range r.rules {
		if rule.UserID == userID {
			result = append(result, rule)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryTradeRuleRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return helpers.NewNotFound("trade rule %s not found", id)
	}
	rule.IsActive = active
	r.rules[id] = rule
	return nil
}

func (r *MemoryTradeRuleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return helpers.NewNotFound("trade rule %s not found", id)
	}
	delete(r.rules, id)
	return nil
}

// -----------------------------------------------------------------------------

type MemoryTransactionRepo struct {
	mu  sync.RWMutex
	txs []models.MTransaction
	seq int64
}

var _ interfaces.ITransactionRepo = (*MemoryTransactionRepo)(nil)

func NewMemoryTransactionRepo() *MemoryTransactionRepo {
	return &MemoryTransactionRepo{}
}

func (r *MemoryTransactionRepo) Create(_ context.Context, tx models.MTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	tx.Seq = r.seq
	r.txs = append(r.txs, tx)
	return nil
}

// ForPortfolio returns transactions newest first by date, ties broken by
// insertion order.
func (r *MemoryTransactionRepo) ForPortfolio(_ context.Context, portfolioID string) ([]models.MTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.MTransaction
	for _, tx := range r.txs {
		if tx.PortfolioID == portfolioID {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].Seq > result[j].Seq
	})
	return result, nil
}
