package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecordChangedMessage is published after a successful write. Consumers are
// expected to re-read the record; the payload carries only identity.
type RecordChangedMessage struct {
	Entity    string    `json:"entity"`
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(entity string, id uuid.UUID, action string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Entity:    entity,
		ID:        id,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }

func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var m RecordChangedMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
