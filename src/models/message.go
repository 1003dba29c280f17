package models

// -----------------------------------------------------------------------------
// Push message envelope
// -----------------------------------------------------------------------------

// MUpdateKind tags what a pushed message carries.
type MUpdateKind string

const (
	UpdateKindInitial   MUpdateKind = "INITIAL"
	UpdateKindUpdate    MUpdateKind = "UPDATE"
	UpdateKindHeartbeat MUpdateKind = "HEARTBEAT"
	UpdateKindTriggered MUpdateKind = "TRIGGERED"
)

// MUpdateMessage is the wire envelope for every push to a subscription's
// destination.
type MUpdateMessage struct {
	SubscriptionID string      `json:"subscription_id"`
	Kind           MUpdateKind `json:"kind"`
	Payload        interface{} `json:"payload,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Client -> server websocket frames
// -----------------------------------------------------------------------------

// MClientCommand is a frame sent by a connected client over the websocket.
// "subscribe" binds a destination to the connection so pushes addressed to
// it reach this client; "unsubscribe" releases the binding.
type MClientCommand struct {
	Command     string `json:"command"`
	Destination string `json:"destination"`
}

// MConnectedFrame is sent once right after the websocket upgrade so the
// client learns the session id to use in subscription requests.
type MConnectedFrame struct {
	Type      string `json:"type"` // always "CONNECTED"
	SessionID string `json:"session_id"`
}
