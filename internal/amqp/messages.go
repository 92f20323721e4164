package amqp

import (
	"encoding/json"
	"time"

	"fire/internal/autosave"
)

// ShareCommittedMessage announces a share token that was pushed to the location.
// The token alone is enough to restore the snapshot, so consumers never need the store.
type ShareCommittedMessage struct {
	Token       string    `json:"token"`
	Codec       string    `json:"codec"`
	Streams     int       `json:"streams"`
	Manual      bool      `json:"manual"`
	CommittedAt time.Time `json:"committed_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewShareCommittedMessage builds a message from an autosave commit
func NewShareCommittedMessage(c autosave.Commit) *ShareCommittedMessage {
	return &ShareCommittedMessage{
		Token:       c.Token,
		Codec:       c.Codec,
		Streams:     c.Streams,
		Manual:      c.Manual,
		CommittedAt: c.At,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ShareCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ShareCommittedMessageFromJSON creates a message from JSON bytes
func ShareCommittedMessageFromJSON(data []byte) (*ShareCommittedMessage, error) {
	var msg ShareCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
