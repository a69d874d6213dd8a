package snapshot

import (
	"encoding/json"
	"time"
)

// Snapshot is the last body a path answered with that decoded cleanly.
type Snapshot struct {
	Path      string          `json:"path"`
	Body      json.RawMessage `json:"body"`
	FetchedAt time.Time       `json:"fetched_at"`
	Runner    string          `json:"runner,omitempty"`
}
