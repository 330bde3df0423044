package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Account lifecycle actions carried on the wire.
const (
	ActionSignedUp   = "signed_up"
	ActionApproved   = "approved"
	ActionRejected   = "rejected"
	ActionPaused     = "paused"
	ActionResumed    = "resumed"
	ActionTerminated = "terminated"
)

var errMissingFields = errors.New("account event is missing user_id or action")

// AccountEventMessage notifies downstream consumers that an account changed
// state. It carries only identifiers; consumers fetch the full profile when
// they need more.
type AccountEventMessage struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAccountEventMessage creates a new account event message
func NewAccountEventMessage(userID, email, action string) *AccountEventMessage {
	return &AccountEventMessage{
		UserID:    userID,
		Email:     email,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AccountEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AccountEventMessageFromJSON creates a message from JSON bytes
func AccountEventMessageFromJSON(data []byte) (*AccountEventMessage, error) {
	var msg AccountEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Action == "" {
		return nil, errMissingFields
	}
	return &msg, nil
}
