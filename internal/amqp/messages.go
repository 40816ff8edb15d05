package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"pennywise/internal/core"
)

// EventType doubles as the routing key on the topic exchange.
type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is published after an expense is written or removed.
// Deleted events carry only the expense ID.
type ExpenseEvent struct {
	Type        EventType `json:"type"`
	ExpenseID   string    `json:"expense_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	OccurredAt  time.Time `json:"occurred_at,omitzero"`
	Source      string    `json:"source,omitempty"`
	RecurringID string    `json:"recurring_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCreatedEvent(e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        EventExpenseCreated,
		ExpenseID:   e.ID,
		CategoryID:  e.CategoryID,
		AmountCents: e.Amount.Cents,
		OccurredAt:  e.OccurredAt,
		Source:      string(e.Source),
		RecurringID: e.RecurringID,
		Timestamp:   time.Now(),
	}
}

func NewExpenseDeletedEvent(id string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventExpenseDeleted,
		ExpenseID: id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and sanity-checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventExpenseCreated, EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ExpenseID == "" {
		return nil, fmt.Errorf("event %s without expense id", msg.Type)
	}
	return &msg, nil
}
