package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"scorecard/internal/core"
)

// ExportRequested asks a worker to export a finalized snapshot. The snapshot
// travels with the message since scorecards live only in the API process.
type ExportRequested struct {
	ID        string        `json:"id"`
	Snapshot  core.Snapshot `json:"snapshot"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExportRequested wraps s in a message with a fresh ID.
func NewExportRequested(s core.Snapshot) *ExportRequested {
	return &ExportRequested{
		ID:        uuid.NewString(),
		Snapshot:  s,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequested) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestedFromJSON decodes a message and checks it names a scorecard.
func ExportRequestedFromJSON(data []byte) (*ExportRequested, error) {
	var msg ExportRequested
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Snapshot.ScorecardID == "" {
		return nil, errors.New("export request without scorecard id")
	}
	return &msg, nil
}
