package amqp

import (
	"encoding/json"
	"time"
)

// DonationRecordedMessage tells the export worker a donation landed in the
// ledger. It carries only the id; the worker loads the full row itself, so a
// stale queue never exports stale amounts.
type DonationRecordedMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDonationRecordedMessage(id string) *DonationRecordedMessage {
	return &DonationRecordedMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *DonationRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DonationRecordedMessageFromJSON(data []byte) (*DonationRecordedMessage, error) {
	var msg DonationRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
