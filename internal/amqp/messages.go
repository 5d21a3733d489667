package amqp

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// OperationEvent is the lightweight change notification published after a
// ledger write. It carries only the coordinates of the affected month; the
// report worker fetches fresh data from the database.
type OperationEvent struct {
	Action    string    `json:"action"`
	UserID    int64     `json:"user_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewOperationEvent(action string, userID int64, year, month int) *OperationEvent {
	return &OperationEvent{
		Action:    action,
		UserID:    userID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (m *OperationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OperationEventFromJSON(data []byte) (*OperationEvent, error) {
	var msg OperationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
