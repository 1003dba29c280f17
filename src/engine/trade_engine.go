package engine

import (
	"context"
	"fmt"
	"time"

	"tradewatch/src/helpers"
	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/notifier"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Automated-trade evaluation engine
// -----------------------------------------------------------------------------
// Rules are not single-shot: a rule stays active after firing and may fire
// again on a later qualifying bar. Rules are evaluated only against the
// latest M1 bar per pass; there is no catch-up scan over historical bars
// (see the known-limitation test in trade_engine_test.go).

type TradeEngine struct {
	Rules        interfaces.ITradeRuleRepo
	Transactions interfaces.ITransactionRepo
	Store        interfaces.ICandleStore
	Trading      interfaces.ITradingService
	Dispatcher   *notifier.Dispatcher
	Logger       *logger.Logger
}

// -----------------------------------------------------------------------------

func NewTradeEngine(
	rules interfaces.ITradeRuleRepo,
	transactions interfaces.ITransactionRepo,
	store interfaces.ICandleStore,
	trading interfaces.ITradingService,
	d *notifier.Dispatcher,
	log *logger.Logger,
) *TradeEngine {
	return &TradeEngine{
		Rules:        rules,
		Transactions: transactions,
		Store:        store,
		Trading:      trading,
		Dispatcher:   d,
		Logger:       log,
	}
}

// -----------------------------------------------------------------------------

// CheckRuleCondition reports whether the bar's close satisfies the rule.
func CheckRuleCondition(rule models.MTradeRule, candle models.MCandle) bool {
	return rule.Condition.Matches(candle.Close, rule.Threshold)
}

// -----------------------------------------------------------------------------

// ExecuteAutomatedTrade submits the rule's order to the trading
// collaborator. Any error from the collaborator is caught and turned into
// a failed result so one failing rule cannot abort the scan of the rest.
// Success means the order came back FILLED; the filled trade is recorded
// on the portfolio and the resulting transaction id resolved as the
// portfolio's most recent transaction.
func (e *TradeEngine) ExecuteAutomatedTrade(ctx context.Context, rule models.MTradeRule, candle models.MCandle) models.MTradeExecutionResult {
	req := models.MTradeRequest{
		UserID:       rule.UserID,
		PortfolioID:  rule.PortfolioID,
		Symbol:       rule.Symbol,
		Action:       rule.Action,
		Quantity:     rule.Quantity,
		QuantityType: rule.QuantityType,
		APIKeyID:     rule.APIKeyID,
	}

	resp, err := e.Trading.ExecuteTrade(ctx, req)
	if err != nil {
		e.Logger.Error("rule %s: trade execution failed: %v", rule.ID, err)
		return models.MTradeExecutionResult{RuleID: rule.ID, Success: false, Error: err.Error()}
	}

	result := models.MTradeExecutionResult{RuleID: rule.ID, TradeResponse: &resp}
	if resp.Status != models.OrderStatusFilled {
		result.Error = fmt.Sprintf("order %s not filled: %s", resp.OrderID, resp.Status)
		return result
	}

	result.Success = true

	if err := e.Transactions.Create(ctx, models.MTransaction{
		ID:          uuid.NewString(),
		PortfolioID: rule.PortfolioID,
		Symbol:      rule.Symbol,
		Action:      string(rule.Action),
		Quantity:    rule.Quantity,
		Price:       candle.Close,
		Date:        time.Now().UTC(),
	}); err != nil {
		e.Logger.Error("rule %s: recording transaction failed: %v", rule.ID, err)
	}

	result.TransactionID = e.resolveTransactionID(ctx, rule.PortfolioID)
	return result
}

// -----------------------------------------------------------------------------

// resolveTransactionID picks the portfolio's latest transaction by date,
// tie-broken by most recently persisted. Empty when the store has nothing.
func (e *TradeEngine) resolveTransactionID(ctx context.Context, portfolioID string) string {
	txs, err := e.Transactions.ForPortfolio(ctx, portfolioID)
	if err != nil || len(txs) == 0 {
		if err != nil {
			e.Logger.Error("portfolio %s: transaction lookup failed: %v", portfolioID, err)
		}
		return ""
	}
	return txs[0].ID
}

// -----------------------------------------------------------------------------

// EvaluateSubscription runs one poll pass for a trade-rule subscription.
// Returns true when the rule fired this pass.
//
// A NotFoundError from the rule lookup means the rule was deleted; callers
// cancel the subscription on it.
func (e *TradeEngine) EvaluateSubscription(ctx context.Context, sub *models.MTradeSubscription) (bool, error) {
	rule, err := e.Rules.FindByID(ctx, sub.RuleID)
	if err != nil {
		return false, err
	}
	if !rule.IsActive {
		return false, nil
	}

	latest, ok, err := e.Store.LatestCandle(ctx, rule.Platform, rule.Symbol, models.TimeframeM1)
	if err != nil {
		return false, helpers.NewExternal("latest candle lookup failed", err)
	}
	if !ok {
		return false, nil
	}

	// One execution attempt per bar, success or not; the next bar may
	// fire again.
	if sub.AlreadyTriggered(latest.Timestamp) {
		return false, nil
	}
	if !CheckRuleCondition(rule, latest) {
		return false, nil
	}

	result := e.ExecuteAutomatedTrade(ctx, rule, latest)
	sub.MarkTriggered(latest.Timestamp)

	if err := e.Dispatcher.SendTradeResult(sub, result); err != nil {
		// Trade already executed; delivery is at-most-once.
		e.Logger.Error("rule %s: trade result push failed: %v", rule.ID, err)
	}
	return true, nil
}
