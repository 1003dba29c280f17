package interfaces

import "tradewatch/src/models"

// -----------------------------------------------------------------------------
// IPushTransport delivers messages to whichever client is currently bound
// to a destination. Delivery is best-effort: a push to a destination with
// no bound client, or to a slow client, is dropped.
// -----------------------------------------------------------------------------

type IPushTransport interface {

	// Push sends one message to the destination.
	Push(destination string, message models.MUpdateMessage) error
}
