package amqp

import (
	"encoding/json"
	"time"
)

type jsonMessage interface {
	ToJSON() ([]byte, error)
}

// ReportGeneratedMessage announces a new report registry entry. Consumers
// fetch the artifact through the API; the message carries identifiers only.
type ReportGeneratedMessage struct {
	ReportID  string    `json:"report_id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportGeneratedMessage(reportID, ownerID string) *ReportGeneratedMessage {
	return &ReportGeneratedMessage{
		ReportID:  reportID,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionsImportedMessage announces a completed CSV bulk import.
type TransactionsImportedMessage struct {
	OwnerID   string    `json:"owner_id"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionsImportedMessage(ownerID string, count int) *TransactionsImportedMessage {
	return &TransactionsImportedMessage{
		OwnerID:   ownerID,
		Count:     count,
		Timestamp: time.Now(),
	}
}

func (m *TransactionsImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionsImportedMessageFromJSON(data []byte) (*TransactionsImportedMessage, error) {
	var msg TransactionsImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
