package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/api/dto"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/utils"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/validator"
	"github.com/bollettalabs/bolletta-sync/internal/syncer"
)

// SyncHandler triggers sync passes and reports on registered providers
type SyncHandler struct {
	engine    *syncer.Engine
	logger    *logger.Logger
	validator *validator.Validator
}

func NewSyncHandler(engine *syncer.Engine, log *logger.Logger, val *validator.Validator) *SyncHandler {
	return &SyncHandler{
		engine:    engine,
		logger:    log,
		validator: val,
	}
}

// Trigger runs a sync pass synchronously and returns the full report.
// An empty body runs every provider over the default window.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req dto.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		utils.WriteError(w, errors.ValidationError("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed").WithDetails(errs))
		return
	}

	syncReq := syncer.Request{Providers: req.Providers}
	if req.Start != "" {
		start, err := time.Parse(invoice.DateLayout, req.Start)
		if err != nil {
			utils.WriteError(w, errors.ValidationError("Invalid start date"))
			return
		}
		syncReq.Start = start
	}
	if req.End != "" {
		end, err := time.Parse(invoice.DateLayout, req.End)
		if err != nil {
			utils.WriteError(w, errors.ValidationError("Invalid end date"))
			return
		}
		syncReq.End = end
	}

	report, err := h.engine.Run(r.Context(), syncReq)
	if err != nil {
		h.logger.ErrorWithErr(err, "Sync pass rejected")
		utils.WriteError(w, errors.FromError(err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, report)
}

// ListProviders returns the registered portal adapters and whether each
// one has usable credentials.
func (h *SyncHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	known := h.engine.Known()
	dtos := make([]dto.ProviderDTO, 0, len(known))
	for _, name := range known {
		dtos = append(dtos, dto.ProviderDTO{
			ID:         name,
			Configured: h.engine.Check(name) == nil,
		})
	}

	utils.WriteSuccess(w, http.StatusOK, dtos)
}
