package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPushReportsCounts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/sync/push" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer oik_test" {
			t.Errorf("Authorization = %q", got)
		}

		var body struct {
			Tenant  string   `json:"tenant"`
			Actions []Action `json:"actions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Tenant != "shop-1" || len(body.Actions) != 2 {
			t.Errorf("body = %+v", body)
		}

		w.Header().Set("X-Applied-Count", "1")
		w.Header().Set("X-Deduplicated-Count", "1")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("oik_test"))

	result, err := c.Sync.Push(context.Background(), "shop-1", []Action{
		{ID: "a-1", Kind: KindUpsertProduct, Payload: json.RawMessage(`{"product":{"id":"p1","name":"Aspirin"}}`)},
		{ID: "a-2", Kind: KindAddStock, Payload: json.RawMessage(`{"stock":{"productId":"p1","quantity":5}}`)},
	})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if result.Applied != 1 || result.Deduplicated != 1 {
		t.Errorf("result = %+v, want 1 applied / 1 deduplicated", result)
	}
}

func TestPushValidationError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"validation_error","message":"batch validation failed","request_id":"req-1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("oik_test"))

	_, err := c.Sync.Push(context.Background(), "shop-1", []Action{{ID: "a-1", Kind: "NOPE"}})
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Code != "validation_error" || apiErr.RequestID != "req-1" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestPullSendsCursor(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tenant") != "shop-1" {
			t.Errorf("tenant = %q", q.Get("tenant"))
		}
		if q.Get("since") != "2026-03-10T09:00:00Z" {
			t.Errorf("since = %q", q.Get("since"))
		}

		_ = json.NewEncoder(w).Encode(PullResponse{Entries: []JournalEntry{
			{ActionID: "a-9", Kind: KindAddStock, Payload: json.RawMessage(`{}`)},
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("oik_test"))

	entries, err := c.Sync.Pull(context.Background(), "shop-1", &since)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}

	if len(entries) != 1 || entries[0].ActionID != "a-9" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestPullFullSyncRequired(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"code":"full_sync_required","message":"cursor predates retained history"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("oik_test"))

	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Sync.Pull(context.Background(), "shop-1", &since)

	if !IsFullSyncRequired(err) {
		t.Fatalf("expected full-sync-required, got %v", err)
	}
}

func TestDownloadSnapshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sync/download" {
			t.Errorf("path = %q", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(SnapshotExport{
			Tenant:   "shop-1",
			Cursor:   time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
			Products: []ProductRow{{ID: "p1", Name: "Aspirin", Quantity: 7}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("oik_test"))

	export, err := c.Sync.Download(context.Background(), "shop-1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if export.Tenant != "shop-1" || len(export.Products) != 1 {
		t.Errorf("export = %+v", export)
	}
	if export.Cursor.IsZero() {
		t.Error("cursor must be set")
	}
}

func TestAdminCreateMember(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/members" {
			t.Errorf("path = %q", r.URL.Path)
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(CreateMemberResult{
			Member: Member{ID: 5, Role: "staff"},
			APIKey: "oik_deadbeef",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("admin-token"))

	result, err := c.Admin.CreateMember(context.Background(), CreateMemberRequest{
		Tenant: "shop-1",
		Email:  "till@example.com",
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	if result.APIKey != "oik_deadbeef" {
		t.Errorf("api_key = %q", result.APIKey)
	}
}

func TestAdminCreateTenantConflict(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"conflict","message":"tenant slug already exists"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("admin-token"))

	_, err := c.Admin.CreateTenant(context.Background(), CreateTenantRequest{Slug: "shop-1", Name: "Again"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			t.Errorf("path = %q", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Version: "1.2.3"})
	}))
	defer srv.Close()

	c := New(srv.URL)

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}

	if resp.Status != "ok" || resp.Version != "1.2.3" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestParseAPIErrorFallback(t *testing.T) {
	t.Parallel()

	apiErr := parseAPIError(http.StatusBadGateway, []byte("upstream blew up"))

	if apiErr.Code != "unknown" || apiErr.Message != "upstream blew up" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}
