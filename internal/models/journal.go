package models

import (
	"encoding/json"
	"time"
)

// JournalEntry is one accepted action in a tenant's totally ordered log.
// Entries are immutable; they disappear only through retention purge.
type JournalEntry struct {
	ID       int64           `json:"-"`
	TenantID int64           `json:"-"`
	MemberID int64           `json:"-"`
	ActionID string          `json:"id"`
	Kind     ActionKind      `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	ServerTS time.Time       `json:"createdAt"`
}

// PullResponse is the body of a successful incremental pull.
type PullResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// FullSyncInstruction is the distinguished signal telling a stale client to
// abandon incremental catch-up and download the full snapshot instead.
const FullSyncInstruction = "FULL_SYNC_REQUIRED"

// FullSyncResponse is returned when the client watermark predates the
// retained journal window.
type FullSyncResponse struct {
	Instruction string `json:"instruction"`
	Message     string `json:"message"`
}
