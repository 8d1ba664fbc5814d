package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// AdminHandler serves operator provisioning and maintenance endpoints.
// All routes are guarded by the admin token middleware.
type AdminHandler struct {
	svc AdminService
	log *logrus.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc AdminService, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

// CreateTenant handles POST /admin/tenants.
func (h *AdminHandler) CreateTenant(c *gin.Context) {
	var req models.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")

		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		respondValidationError(c, http.StatusBadRequest, errs)

		return
	}

	tenant, err := h.svc.CreateTenant(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			respondError(c, http.StatusConflict, ErrCodeConflict, "tenant slug already exists")

			return
		}

		h.log.WithError(err).Error("create tenant failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to create tenant")

		return
	}

	c.JSON(http.StatusCreated, tenant)
}

// CreateMember handles POST /admin/members. The response carries the member's
// API key in plaintext; it is shown exactly once.
func (h *AdminHandler) CreateMember(c *gin.Context) {
	var req models.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")

		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		respondValidationError(c, http.StatusBadRequest, errs)

		return
	}

	result, err := h.svc.CreateMember(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTenantNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "tenant not found")
		case errors.Is(err, models.ErrDuplicateKey):
			respondError(c, http.StatusConflict, ErrCodeConflict, "user is already a member of this tenant")
		default:
			h.log.WithError(err).Error("create member failed")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to create member")
		}

		return
	}

	c.JSON(http.StatusCreated, result)
}

// Purge handles POST /admin/purge: an immediate retention pass instead of
// waiting for the next scheduled one.
func (h *AdminHandler) Purge(c *gin.Context) {
	if err := h.svc.Purge(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("purge failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "purge failed")

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

// RebuildSnapshot handles POST /admin/tenants/:slug/rebuild.
func (h *AdminHandler) RebuildSnapshot(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "tenant slug is required")

		return
	}

	replayed, err := h.svc.RebuildSnapshot(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, models.ErrTenantNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "tenant not found")

			return
		}

		h.log.WithError(err).Error("snapshot rebuild failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "snapshot rebuild failed")

		return
	}

	c.JSON(http.StatusOK, gin.H{"replayed": replayed})
}
