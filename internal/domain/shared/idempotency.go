package shared

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// EventIDSet tracks the upstream event identifiers that have already
// produced an effect on a document. Checking membership and appending
// must happen inside the same transaction as the effect itself: the
// pair is what makes redelivery of a webhook event a safe no-op.
//
// The set grows without bound per document. In practice a document sees
// a handful of events over its lifetime; pruning is deliberately left
// to a maintenance job.
type EventIDSet []string

// Contains reports whether the event ID has already been applied.
func (s EventIDSet) Contains(eventID string) bool {
	for _, id := range s {
		if id == eventID {
			return true
		}
	}
	return false
}

// Add appends an event ID if it is not already present and reports
// whether the set changed.
func (s *EventIDSet) Add(eventID string) bool {
	if s.Contains(eventID) {
		return false
	}
	*s = append(*s, eventID)
	return true
}

// Value implements driver.Valuer for GORM to store the set as JSONB
func (s EventIDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for GORM to read the set from JSONB
func (s *EventIDSet) Scan(value interface{}) error {
	if value == nil {
		*s = EventIDSet{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan EventIDSet: unsupported type")
	}

	if len(bytes) == 0 {
		*s = EventIDSet{}
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// IdempotencyStore is a process-level fast path for event deduplication.
// It is advisory only: the authoritative replay guard is the per-document
// EventIDSet checked inside the write transaction. A store entry that is
// lost (restart, TTL expiry) merely costs one extra pass through a handler
// that will no-op anyway.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL
	// Returns true if the event was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for the fast-path store
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed event IDs
	TTL time.Duration

	// Enabled determines whether the fast-path check is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
