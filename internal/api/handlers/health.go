package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/history"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store  *history.Store
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *history.Store, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: log,
	}
}

// Healthz handles liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles readiness probe
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorWithErr(err, "History store ping failed")
		utils.WriteError(w, errors.New("SERVICE_UNAVAILABLE", "History store unavailable", http.StatusServiceUnavailable))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"history": "connected",
	})
}
