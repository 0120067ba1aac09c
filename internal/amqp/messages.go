package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// BudgetAlertMessage announces that a write pushed a category into WARNING
// or OVER. Amounts travel as decimal strings.
type BudgetAlertMessage struct {
	UserID        int64           `json:"user_id"`
	TransactionID int64           `json:"transaction_id"`
	Category      string          `json:"category"`
	Status        core.Verdict    `json:"status"`
	Limit         decimal.Decimal `json:"limit"`
	Spent         decimal.Decimal `json:"spent"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewBudgetAlertMessage builds an alert from the post-write category status.
func NewBudgetAlertMessage(userID, transactionID int64, st core.CategoryStatus) *BudgetAlertMessage {
	limit := decimal.Zero
	if st.Limit != nil {
		limit = *st.Limit
	}
	return &BudgetAlertMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Category:      st.Category,
		Status:        st.Status,
		Limit:         limit,
		Spent:         st.Spent,
		Timestamp:     time.Now().UTC(),
	}
}

// Validate rejects messages no producer in this module would emit.
func (m *BudgetAlertMessage) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("alert user_id must be positive, got %d", m.UserID)
	}
	if strings.TrimSpace(m.Category) == "" {
		return fmt.Errorf("alert category is empty")
	}
	if !m.Status.IsAlert() {
		return fmt.Errorf("alert status %q is not an alert", m.Status)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON decodes and validates a message body.
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
