package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action names what happened to the ledger
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionDeleted       Action = "deleted"
	ActionPeriodCleared Action = "period_cleared"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionPeriodCleared:
		return true
	}
	return false
}

// RecordEvent is published after every successful ledger write.
// It carries identifiers only; consumers reload what they need from the store.
type RecordEvent struct {
	ID        int64     `json:"id,omitempty"`
	Action    Action    `json:"action"`
	Period    string    `json:"period"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(action Action, id int64, period string, at time.Time) *RecordEvent {
	return &RecordEvent{
		ID:        id,
		Action:    action,
		Period:    period,
		Timestamp: at,
	}
}

func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes and checks a message body
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.Period == "" {
		return nil, fmt.Errorf("missing period")
	}
	return &msg, nil
}
