package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event types pushed to sync clients.
const (
	// EventJournalAppended signals that new journal entries were accepted for
	// the tenant. The payload names the author so receivers can skip polling
	// for their own writes.
	EventJournalAppended = "journal.appended"

	// EventSnapshotRebuilt signals an operator-triggered snapshot rebuild.
	// Clients should pull from their cursor to confirm nothing drifted.
	EventSnapshotRebuilt = "snapshot.rebuilt"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type   string          `json:"type"`
	ID     uint64          `json:"id"`
	Tenant string          `json:"-"`
	Data   json.RawMessage `json:"data"`
	Time   time.Time       `json:"time"`
}

// AppendedData is the payload of a journal.appended event.
type AppendedData struct {
	MemberID int64 `json:"memberId,string"`
	Applied  int   `json:"applied"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to do a full pull (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence tracks monotonic event IDs per tenant.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Next returns the next sequence number for a tenant.
func (es *EventSequence) Next(tenant string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[tenant]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[tenant] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}
