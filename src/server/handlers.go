package server

import (
	"net/http"
	"time"

	"tradewatch/src/helpers"
	"tradewatch/src/models"
	"tradewatch/src/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Error mapping
// -----------------------------------------------------------------------------

// abortWithError translates the domain error kinds onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case helpers.IsValidation(err):
		status = http.StatusBadRequest
	case helpers.IsUnauthorized(err):
		status = http.StatusForbidden
	case helpers.IsNotFound(err):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

// callerUserID reads the user identity from the request header. There is no
// auth layer in front of this service; the gateway injects the header.
func callerUserID(c *gin.Context) (string, bool) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
		return "", false
	}
	return userID, true
}

// -----------------------------------------------------------------------------
// Subscription handlers
// -----------------------------------------------------------------------------

func (s *Server) createStockSubscription(c *gin.Context) {
	var params service.CreateStockParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.subscriptions.CreateStockSubscription(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription_id": id})
}

// -----------------------------------------------------------------------------

func (s *Server) cancelStockSubscription(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}
	if err := s.subscriptions.CancelStockSubscription(userID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *Server) createAlertSubscription(c *gin.Context) {
	var params service.CreateAlertParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.subscriptions.CreateAlertSubscription(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription_id": id})
}

// -----------------------------------------------------------------------------

func (s *Server) cancelAlertSubscription(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}
	if err := s.subscriptions.CancelAlertSubscription(userID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *Server) createTradeSubscription(c *gin.Context) {
	var params service.CreateTradeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.subscriptions.CreateTradeSubscription(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription_id": id})
}

// -----------------------------------------------------------------------------

func (s *Server) cancelTradeSubscription(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}
	if err := s.subscriptions.CancelTradeSubscription(userID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Alert CRUD
// -----------------------------------------------------------------------------

type createAlertRequest struct {
	Platform  string  `json:"platform" binding:"required"`
	Symbol    string  `json:"symbol" binding:"required"`
	Condition string  `json:"condition" binding:"required"`
	Threshold float64 `json:"threshold" binding:"required"`
}

func (s *Server) createAlert(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	condition := models.MCondition(req.Condition)
	if condition != models.ConditionPriceAbove && condition != models.ConditionPriceBelow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "condition must be PRICE_ABOVE or PRICE_BELOW"})
		return
	}

	alert := models.MAlert{
		ID:        uuid.NewString(),
		UserID:    userID,
		Platform:  req.Platform,
		Symbol:    req.Symbol,
		Condition: condition,
		Threshold: req.Threshold,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.alerts.Create(c.Request.Context(), alert); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// -----------------------------------------------------------------------------

func (s *Server) listAlerts(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	alerts, err := s.alerts.FindByUser(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// -----------------------------------------------------------------------------

func (s *Server) deleteAlert(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	alert, err := s.alerts.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if alert.UserID != userID {
		abortWithError(c, helpers.NewUnauthorized("alert %s is not owned by user %s", alert.ID, userID))
		return
	}

	if err := s.alerts.Delete(c.Request.Context(), alert.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Trade rule CRUD
// -----------------------------------------------------------------------------

type createRuleRequest struct {
	PortfolioID  string  `json:"portfolio_id" binding:"required"`
	Platform     string  `json:"platform" binding:"required"`
	Symbol       string  `json:"symbol" binding:"required"`
	Condition    string  `json:"condition" binding:"required"`
	Action       string  `json:"action" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required"`
	QuantityType string  `json:"quantity_type" binding:"required"`
	Threshold    float64 `json:"threshold" binding:"required"`
	APIKeyID     string  `json:"api_key_id"`
}

func (s *Server) createRule(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	condition := models.MCondition(req.Condition)
	if condition != models.ConditionPriceAbove && condition != models.ConditionPriceBelow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "condition must be PRICE_ABOVE or PRICE_BELOW"})
		return
	}
	action := models.MTradeAction(req.Action)
	if action != models.TradeActionBuy && action != models.TradeActionSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be BUY or SELL"})
		return
	}
	quantityType := models.MQuantityType(req.QuantityType)
	if quantityType != models.QuantityTypeUnits && quantityType != models.QuantityTypeCurrency {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity_type must be UNITS or CURRENCY"})
		return
	}

	rule := models.MTradeRule{
		ID:           uuid.NewString(),
		UserID:       userID,
		PortfolioID:  req.PortfolioID,
		Platform:     req.Platform,
		Symbol:       req.Symbol,
		Condition:    condition,
		Action:       action,
		Quantity:     req.Quantity,
		QuantityType: quantityType,
		Threshold:    req.Threshold,
		APIKeyID:     req.APIKeyID,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.rules.Create(c.Request.Context(), rule); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// -----------------------------------------------------------------------------

func (s *Server) listRules(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	rules, err := s.rules.FindByUser(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// -----------------------------------------------------------------------------

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (s *Server) setRuleActive(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := s.rules.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if rule.UserID != userID {
		abortWithError(c, helpers.NewUnauthorized("trade rule %s is not owned by user %s", rule.ID, userID))
		return
	}

	if err := s.rules.SetActive(c.Request.Context(), rule.ID, *req.Active); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *Server) deleteRule(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		return
	}

	rule, err := s.rules.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if rule.UserID != userID {
		abortWithError(c, helpers.NewUnauthorized("trade rule %s is not owned by user %s", rule.ID, userID))
		return
	}

	if err := s.rules.Delete(c.Request.Context(), rule.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

func (s *Server) listTransactions(c *gin.Context) {
	if _, ok := callerUserID(c); !ok {
		return
	}

	txs, err := s.transactions.ForPortfolio(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
