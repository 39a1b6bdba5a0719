package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bollettalabs/bolletta-sync/internal/api/dto"
	"github.com/bollettalabs/bolletta-sync/internal/history"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/utils"
)

// RunsHandler serves the recorded sync-run history
type RunsHandler struct {
	store  *history.Store
	logger *logger.Logger
}

func NewRunsHandler(store *history.Store, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		store:  store,
		logger: log,
	}
}

// List returns recent runs, newest first. The limit query parameter caps
// the result count.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.WriteError(w, errors.ValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list runs")
		utils.WriteError(w, errors.Internal("Failed to list runs", err))
		return
	}

	dtos := make([]dto.RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Get returns one run with its per-provider outcomes
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, history.ErrNotFound) {
			utils.WriteError(w, errors.NotFound("run"))
			return
		}
		h.logger.ErrorWithErr(err, "Failed to load run")
		utils.WriteError(w, errors.Internal("Failed to load run", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, toRunDTO(*run))
}

func toRunDTO(run history.Run) dto.RunDTO {
	out := dto.RunDTO{
		ID:          run.ID,
		StartedAt:   run.StartedAt.Format(time.RFC3339),
		FinishedAt:  run.FinishedAt.Format(time.RFC3339),
		WindowStart: run.WindowStart,
		WindowEnd:   run.WindowEnd,
		Status:      run.Status,
	}
	for _, p := range run.Providers {
		out.Providers = append(out.Providers, dto.RunProviderDTO{
			Provider:         p.Provider,
			Status:           p.Status,
			ErrorCode:        p.ErrorCode,
			ErrorMessage:     p.ErrorMessage,
			InvoicesFound:    p.InvoicesFound,
			DocumentsStored:  p.DocumentsStored,
			DocumentsSkipped: p.DocumentsSkipped,
			RemindersCreated: p.RemindersCreated,
		})
	}
	return out
}
