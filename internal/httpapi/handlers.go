// Package httpapi implements the HTTP scope-provisioning/retrieval
// surface, grounded on the teacher's api/internal/api.Handlers: gin
// handlers pulling query/body params, returning gin.H error envelopes on
// failure paths.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
	"github.com/sambitmohanty1/transit-dispatch/internal/scopestore"
)

// Handlers holds the scope store and logger the endpoints depend on.
type Handlers struct {
	store  *scopestore.Store
	logger *zap.Logger
}

func NewHandlers(store *scopestore.Store, logger *zap.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

// viewportRequest is the POST /api/v1/trains/scopes body.
type viewportRequest struct {
	CityID            string         `json:"cityId"`
	BBox              models.BBox    `json:"bbox"`
	ExternalScopeKey  string         `json:"externalScopeKey,omitempty"`
}

type validationDetail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// PostScope provisions or reuses a scope for a client-supplied viewport.
func (h *Handlers) PostScope(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, []validationDetail{{Path: "body", Message: err.Error(), Code: "malformed_json"}})
		return
	}

	cityID := strings.TrimSpace(req.CityID)
	if cityID == "" {
		respondValidationError(c, []validationDetail{{Path: "cityId", Message: "cityId is required", Code: "required"}})
		return
	}

	if req.ExternalScopeKey != "" && len(req.ExternalScopeKey) > 256 {
		respondValidationError(c, []validationDetail{{Path: "externalScopeKey", Message: "externalScopeKey must be 1..256 chars", Code: "length"}})
		return
	}

	scopeID, normalized, err := scopestore.DeriveScopeID(cityID, req.BBox, req.ExternalScopeKey)
	if err != nil {
		respondValidationError(c, []validationDetail{{Path: bboxErrorPath(err), Message: err.Error(), Code: "invalid_bbox"}})
		return
	}

	now := time.Now().UTC()
	def := models.ScopeDefinition{
		ID:              scopeID,
		CityID:          cityID,
		BBox:            normalized,
		CreatedAt:       now,
		LastAccessedAt:  now,
		ExternalKeyUsed: req.ExternalScopeKey != "",
	}
	h.store.UpsertScope(def, 0)

	if frame, ok := h.store.GetFrame(scopeID); ok {
		c.JSON(http.StatusOK, gin.H{"ok": true, "scopeId": scopeID, "frame": frame})
		return
	}

	frame := models.ScopedTrainsFrame{
		ScopeID:  scopeID,
		BBox:     normalized,
		CityID:   cityID,
		At:       now,
		Vehicles: []models.VehiclePosition{},
	}
	h.store.SetFrame(frame, 0)

	c.JSON(http.StatusCreated, gin.H{"ok": true, "scopeId": scopeID, "frame": frame})
}

// GetFrame serves the latest frame for a scope.
func (h *Handlers) GetFrame(c *gin.Context) {
	scope := c.Query("scope")
	if strings.TrimSpace(scope) == "" {
		respondError(c, http.StatusBadRequest, "Missing or invalid scope parameter", nil)
		return
	}

	frame, ok := h.store.GetFrame(scope)
	if !ok {
		respondError(c, http.StatusNotFound, "Scope not found", nil)
		return
	}

	h.store.TouchScope(scope)
	c.JSON(http.StatusOK, gin.H{"ok": true, "frame": frame})
}

// ListScopes returns currently active scope definitions, for operator
// tooling — not intended to drive client polling (see spec §9).
func (h *Handlers) ListScopes(c *gin.Context) {
	scopes := make([]models.ScopeDefinition, 0)
	h.store.ForEachActiveScope(func(def models.ScopeDefinition) {
		scopes = append(scopes, def)
	})
	c.JSON(http.StatusOK, gin.H{"ok": true, "scopes": scopes})
}

// bboxErrorPath maps a DeriveScopeID validation error to the field path
// the wire error envelope points at, per spec §8 S2 ("details[*].path
// contains bbox.north").
func bboxErrorPath(err error) string {
	if strings.Contains(err.Error(), "south") {
		return "bbox.north"
	}
	return "bbox.east"
}

func respondValidationError(c *gin.Context, details []validationDetail) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid viewport request", "details": details})
}

func respondError(c *gin.Context, status int, message string, details any) {
	body := gin.H{"ok": false, "error": message}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}
