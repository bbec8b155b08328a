package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExpenseCreatedMessage announces a newly stored expense. It carries only
// the ID and owner; consumers load the full record from the store.
type ExpenseCreatedMessage struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(id int64, owner string) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:        id,
		Owner:     owner,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON decodes a message and rejects IDs below 1.
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID < 1 {
		return nil, errors.New("message has no expense id")
	}
	return &msg, nil
}
