package notifier

import (
	"time"

	"tradewatch/src/interfaces"
	"tradewatch/src/models"
)

// -----------------------------------------------------------------------------
// Notification dispatcher
// -----------------------------------------------------------------------------
// Stateless formatter + pusher shared by all three feed kinds. Exactly one
// push per call; a transport failure is returned to the caller for logging
// and is never retried here. Candle updates are naturally re-detected next
// cycle, while single-shot alert triggers and trade executions are not
// re-evaluated after their state change, so their failure policy is
// at-most-once delivery.

type Dispatcher struct {
	Transport interfaces.IPushTransport
}

// -----------------------------------------------------------------------------

func NewDispatcher(transport interfaces.IPushTransport) *Dispatcher {
	return &Dispatcher{Transport: transport}
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) push(destination, subscriptionID string, kind models.MUpdateKind, payload interface{}) error {
	return d.Transport.Push(destination, models.MUpdateMessage{
		SubscriptionID: subscriptionID,
		Kind:           kind,
		Payload:        payload,
		Timestamp:      time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------
// Stock candle feed
// -----------------------------------------------------------------------------

// SendInitialCandle pushes the current bar to a fresh subscription.
func (d *Dispatcher) SendInitialCandle(sub *models.MStockSubscription, candle models.MCandle) error {
	return d.push(sub.Destination, sub.ID, models.UpdateKindInitial, []models.MCandle{candle})
}

// SendCandleUpdates pushes new or modified bars, oldest first.
func (d *Dispatcher) SendCandleUpdates(sub *models.MStockSubscription, bars []models.MCandle) error {
	return d.push(sub.Destination, sub.ID, models.UpdateKindUpdate, bars)
}

// SendHeartbeat keeps the transport-level connection alive for
// subscriptions that had no data this cycle.
func (d *Dispatcher) SendHeartbeat(sub *models.MStockSubscription) error {
	return d.push(sub.Destination, sub.ID, models.UpdateKindHeartbeat, nil)
}

// -----------------------------------------------------------------------------
// Alert feed
// -----------------------------------------------------------------------------

// MAlertTriggerPayload is the TRIGGERED payload for a fired alert.
type MAlertTriggerPayload struct {
	Alert  models.MAlert  `json:"alert"`
	Candle models.MCandle `json:"candle"`
}

// SendAlertTriggered pushes the fired alert together with the bar that
// satisfied it.
func (d *Dispatcher) SendAlertTriggered(sub *models.MAlertSubscription, alert models.MAlert, candle models.MCandle) error {
	return d.push(sub.Destination, sub.ID, models.UpdateKindTriggered, MAlertTriggerPayload{Alert: alert, Candle: candle})
}

// -----------------------------------------------------------------------------
// Automated trade feed
// -----------------------------------------------------------------------------

// SendTradeResult pushes the outcome of an automated trade, success or
// failure, so the client can distinguish them.
func (d *Dispatcher) SendTradeResult(sub *models.MTradeSubscription, result models.MTradeExecutionResult) error {
	return d.push(sub.Destination, sub.ID, models.UpdateKindTriggered, result)
}
