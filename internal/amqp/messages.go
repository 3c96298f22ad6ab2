package amqp

import (
	"encoding/json"
	"time"
)

// Message types, also used as routing keys on the exchange.
const (
	TypeLedgerChanged   = "ledger.changed"
	TypeReportRequested = "report.requested"
)

// LedgerChangedMessage announces that a profile's ledger was written to.
// Consumers re-read whatever they need; the message carries no rows.
type LedgerChangedMessage struct {
	ProfileID string    `json:"profile_id"`
	Years     []int     `json:"years"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(profileID string, years []int, action string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ProfileID: profileID,
		Years:     years,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportRequestedMessage asks the worker to generate a monthly report.
type ReportRequestedMessage struct {
	ProfileID    string    `json:"profile_id"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	UserComments string    `json:"user_comments,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewReportRequestedMessage(profileID string, year, month int, comments string) *ReportRequestedMessage {
	return &ReportRequestedMessage{
		ProfileID:    profileID,
		Year:         year,
		Month:        month,
		UserComments: comments,
		Timestamp:    time.Now(),
	}
}

func (m *ReportRequestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRequestedMessageFromJSON(data []byte) (*ReportRequestedMessage, error) {
	var msg ReportRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
