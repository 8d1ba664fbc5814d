package models

import (
	"encoding/json"
	"time"
)

// PushLogEntry is the raw record of one received push batch. It exists for
// diagnostics only: the sync protocol writes it and never reads it back.
type PushLogEntry struct {
	ID         int64           `json:"id,string"`
	TenantID   int64           `json:"tenant_id,string"`
	MemberID   int64           `json:"member_id,string"`
	Batch      json.RawMessage `json:"batch"`
	ReceivedAt time.Time       `json:"received_at"`
}

// PushLogQueryOpts filters the diagnostics query over the push log.
type PushLogQueryOpts struct {
	Since  *time.Time
	Limit  int
	Offset int
}
