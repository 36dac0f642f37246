package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// Event types carried in LedgerEvent.Type.
const (
	EventExpenseCreated = "expense.created"
	EventLedgerCleared  = "ledger.cleared"
)

// LedgerEvent is a lightweight notification of a ledger write.
// Consumers fetch the full expense from storage when they need it.
type LedgerEvent struct {
	Type      string    `json:"type"`
	ExpenseID int64     `json:"expense_id,omitempty"`
	Category  string    `json:"category,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Deleted   int64     `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedEvent(e core.Expense) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventExpenseCreated,
		ExpenseID: e.ID,
		Category:  e.Category,
		Amount:    e.Amount,
		Timestamp: time.Now(),
	}
}

func NewLedgerClearedEvent(deleted int64) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventLedgerCleared,
		Deleted:   deleted,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event published by Client.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
