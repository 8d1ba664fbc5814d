package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SyncService handles push/pull replication against a tenant journal.
type SyncService struct {
	c *Client
}

// Push submits a batch of actions. Safe to retry with the same action IDs;
// the server deduplicates and reports both counts.
func (s *SyncService) Push(ctx context.Context, tenant string, actions []Action) (*PushResult, error) {
	body, err := json.Marshal(struct {
		Tenant  string   `json:"tenant"`
		Actions []Action `json:"actions"`
	}{Tenant: tenant, Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.baseURL+"/api/v1/sync/push", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.c.apiKey)
	}

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	result := &PushResult{}
	result.Applied, _ = strconv.Atoi(resp.Header.Get("X-Applied-Count"))
	result.Deduplicated, _ = strconv.Atoi(resp.Header.Get("X-Deduplicated-Count"))

	return result, nil
}

// Pull fetches journal entries accepted after since, excluding the caller's
// own pushes. A nil since returns the full retained journal. When the cursor
// predates retained history the error satisfies IsFullSyncRequired and the
// caller should Download a fresh snapshot.
func (s *SyncService) Pull(ctx context.Context, tenant string, since *time.Time) ([]JournalEntry, error) {
	params := url.Values{"tenant": {tenant}}
	if since != nil {
		params.Set("since", since.Format(time.RFC3339Nano))
	}

	var resp PullResponse
	if err := s.c.get(ctx, "/api/v1/sync/pull", params, &resp); err != nil {
		return nil, err
	}

	return resp.Entries, nil
}

// Download fetches the full materialized snapshot for bootstrap or recovery.
func (s *SyncService) Download(ctx context.Context, tenant string) (*SnapshotExport, error) {
	params := url.Values{"tenant": {tenant}}

	var export SnapshotExport
	if err := s.c.get(ctx, "/api/v1/sync/download", params, &export); err != nil {
		return nil, err
	}

	return &export, nil
}

// PushHistory queries the raw push diagnostics log. Requires an admin role
// on the tenant.
func (s *SyncService) PushHistory(ctx context.Context, tenant string, opts PushHistoryOpts) ([]PushLogEntry, error) {
	params := url.Values{"tenant": {tenant}}
	if opts.Since != nil {
		params.Set("since", opts.Since.Format(time.RFC3339Nano))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var resp struct {
		Data []PushLogEntry `json:"data"`
	}
	if err := s.c.get(ctx, "/api/v1/sync/audit", params, &resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}
