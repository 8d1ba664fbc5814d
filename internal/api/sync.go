// Package api provides HTTP handlers for the sync service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// maxBatchActions bounds one push batch. Clients accumulate while offline
// and are expected to chunk; a batch this large indicates a broken client.
const maxBatchActions = 1000

// SyncHandler serves the push/pull/download protocol endpoints.
type SyncHandler struct {
	svc SyncService
	log *logrus.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(svc SyncService, log *logrus.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, log: log}
}

// Push handles POST /api/v1/sync/push.
//
// The whole batch either lands in the journal or is rejected; a replayed
// batch is acknowledged identically to its first delivery, so clients can
// retry on any network failure without tracking which half arrived.
func (h *SyncHandler) Push(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "reading request body: "+err.Error())

		return
	}

	var req models.PushRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")

		return
	}

	if req.Tenant == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "tenant is required")

		return
	}

	if len(req.Actions) > maxBatchActions {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest,
			fmt.Sprintf("batch exceeds %d actions, split and retry", maxBatchActions))

		return
	}

	result, err := h.svc.Push(c.Request.Context(), userID, &req, raw)
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			respondValidationError(c, http.StatusBadRequest, verrs)

			return
		}

		if errors.Is(err, models.ErrAccessDenied) {
			respondError(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this tenant")

			return
		}

		h.log.WithError(err).Error("push failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to apply batch")

		return
	}

	c.Header("X-Applied-Count", fmt.Sprintf("%d", result.Applied))
	c.Header("X-Deduplicated-Count", fmt.Sprintf("%d", result.Deduplicated))
	c.Status(http.StatusNoContent)
}

// Pull handles GET /api/v1/sync/pull.
//
// Without since it returns the tenant's full retained journal (minus the
// caller's own entries). With since it returns strictly newer entries, or
// 410 Gone with a FULL_SYNC_REQUIRED body when the watermark has aged past
// the retention horizon.
func (h *SyncHandler) Pull(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	slug, ok := requireTenantParam(c)
	if !ok {
		return
	}

	since, ok := parseSince(c)
	if !ok {
		return
	}

	entries, err := h.svc.Pull(c.Request.Context(), userID, slug, since)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrStaleCursor):
			c.JSON(http.StatusGone, models.FullSyncResponse{
				Instruction: models.FullSyncInstruction,
				Message:     "cursor predates retained history, download a fresh snapshot",
			})
		case errors.Is(err, models.ErrAccessDenied):
			respondError(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this tenant")
		default:
			h.log.WithError(err).Error("pull failed")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to read journal")
		}

		return
	}

	c.JSON(http.StatusOK, models.PullResponse{Entries: entries})
}

// Download handles GET /api/v1/sync/download. The export is served as a JSON
// attachment so browser-based tooling saves it instead of rendering it.
func (h *SyncHandler) Download(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	slug, ok := requireTenantParam(c)
	if !ok {
		return
	}

	export, err := h.svc.Download(c.Request.Context(), userID, slug)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSnapshotNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "no snapshot exists for this tenant yet")
		case errors.Is(err, models.ErrAccessDenied):
			respondError(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this tenant")
		default:
			h.log.WithError(err).Error("download failed")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to export snapshot")
		}

		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slug+"-snapshot.json"))
	c.JSON(http.StatusOK, export)
}

// PushHistory handles GET /api/v1/sync/audit: recent raw push batches for
// tenant admins diagnosing a device that produced a wrong snapshot.
func (h *SyncHandler) PushHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	slug, ok := requireTenantParam(c)
	if !ok {
		return
	}

	opts := models.PushLogQueryOpts{
		Limit:  parseInt(c.Query("limit"), 50),
		Offset: parseOffset(c.Query("offset")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339Nano, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid since format, use RFC3339")

			return
		}
		opts.Since = &t
	}

	entries, err := h.svc.PushHistory(c.Request.Context(), userID, slug, opts)
	if err != nil {
		if errors.Is(err, models.ErrAccessDenied) {
			respondError(c, http.StatusForbidden, ErrCodeForbidden, "push history requires the admin role")

			return
		}

		h.log.WithError(err).Error("push history query failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to query push history")

		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
