package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/history"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/metrics"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
)

// DefaultWindowDays is how far back a pass reaches when no explicit
// window is requested.
const DefaultWindowDays = 10

// Run statuses
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Request selects what one sync pass covers. A nil Providers slice means
// every registered provider; an explicitly empty one is rejected. Zero
// Start/End default to the trailing window ending today.
type Request struct {
	Providers []string
	Start     time.Time
	End       time.Time
}

// Outcome is the result of one provider's slice of a pass
type Outcome struct {
	Provider         string        `json:"provider"`
	Status           string        `json:"status"`
	ErrorCode        string        `json:"error_code,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	InvoicesFound    int           `json:"invoices_found"`
	DocumentsStored  int           `json:"documents_stored"`
	DocumentsSkipped int           `json:"documents_skipped"`
	RemindersCreated int           `json:"reminders_created"`
	InvoiceErrors    []string      `json:"invoice_errors,omitempty"`
	Duration         time.Duration `json:"-"`
}

// Report aggregates a whole pass. Every requested provider appears in
// Outcomes regardless of how its slice went.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Start      string    `json:"window_start"`
	End        string    `json:"window_end"`
	Status     string    `json:"status"`
	Outcomes   []Outcome `json:"outcomes"`
}

// DepsBuilder assembles the collaborators for one provider's adapter
type DepsBuilder func(name string) (provider.Deps, error)

// Engine fans a sync pass out across providers and gathers the results
type Engine struct {
	registry *provider.Registry
	depsFor  DepsBuilder
	hist     *history.Store
	log      *logger.Logger
	now      func() time.Time
}

// New creates a sync engine. hist may be nil when no audit trail is wanted.
func New(registry *provider.Registry, depsFor DepsBuilder, hist *history.Store, log *logger.Logger) *Engine {
	return &Engine{
		registry: registry,
		depsFor:  depsFor,
		hist:     hist,
		log:      log,
		now:      time.Now,
	}
}

// Known returns the registered provider ids, sorted
func (e *Engine) Known() []string {
	return e.registry.Known()
}

// Check reports whether a provider's credentials and dependencies are in
// place. Factories validate configuration without touching the network, so
// this is safe to call from a status endpoint.
func (e *Engine) Check(name string) error {
	deps, err := e.depsFor(name)
	if err != nil {
		return err
	}
	_, err = e.registry.Create(name, deps)
	return err
}

// resolve validates the request and fills in defaults
func (e *Engine) resolve(req Request) ([]string, time.Time, time.Time, error) {
	names := req.Providers
	if names == nil {
		names = e.registry.Known()
	}
	if len(names) == 0 {
		return nil, time.Time{}, time.Time{}, errors.ValidationError("no providers selected")
	}
	for _, name := range names {
		if !e.registry.Has(name) {
			return nil, time.Time{}, time.Time{}, errors.ValidationError(fmt.Sprintf("unknown provider %q", name))
		}
	}

	start, end := req.Start, req.End
	if start.IsZero() && end.IsZero() {
		end = e.now().UTC().Truncate(24 * time.Hour)
		start = end.AddDate(0, 0, -DefaultWindowDays)
		// Early January: the trailing window would reach into the
		// previous year, which the same-year rule below forbids.
		if start.Year() != end.Year() {
			start = time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		}
	}
	if start.IsZero() || end.IsZero() {
		return nil, time.Time{}, time.Time{}, errors.ValidationError("window start and end must both be set or both be empty")
	}
	if end.Before(start) {
		return nil, time.Time{}, time.Time{}, errors.ValidationError("window end precedes start")
	}
	if start.Year() != end.Year() {
		return nil, time.Time{}, time.Time{}, errors.ValidationError("window must not cross a year boundary")
	}

	return names, start, end, nil
}

// Run executes one pass: every selected provider in its own goroutine,
// each isolated from the others, all results gathered into one report.
// Validation failures surface before any portal is contacted.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	names, start, end, err := e.resolve(req)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        uuid.New().String(),
		StartedAt: e.now().UTC(),
		Start:     start.Format(invoice.DateLayout),
		End:       end.Format(invoice.DateLayout),
		Outcomes:  make([]Outcome, 0, len(names)),
	}

	e.log.WithFields(map[string]interface{}{
		"run_id":    report.ID,
		"providers": names,
		"start":     report.Start,
		"end":       report.End,
	}).Info("Sync pass started")

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			outcome := e.runProvider(ctx, name, start, end)
			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcome)
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	report.FinishedAt = e.now().UTC()
	report.Status = overallStatus(report.Outcomes)

	metrics.RecordSyncPass(report.Status, report.FinishedAt.Sub(report.StartedAt))

	e.log.WithFields(map[string]interface{}{
		"run_id":   report.ID,
		"status":   report.Status,
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Sync pass finished")

	if e.hist != nil {
		if err := e.hist.RecordRun(ctx, toHistoryRun(report)); err != nil {
			e.log.ErrorWithErr(err, "Failed to record sync run")
		}
	}

	return report, nil
}

// runProvider drives one provider end to end. A panic in an adapter is
// contained here so one misbehaving portal cannot sink the pass.
func (e *Engine) runProvider(ctx context.Context, name string, start, end time.Time) (outcome Outcome) {
	began := e.now()
	outcome = Outcome{Provider: name, Status: StatusOK}

	defer func() {
		outcome.Duration = e.now().Sub(began)
		if r := recover(); r != nil {
			outcome.Status = StatusFailed
			outcome.ErrorCode = errors.ErrCodeProvider
			outcome.ErrorMessage = fmt.Sprintf("panic: %v", r)
			metrics.RecordProviderFailure(name, errors.ErrCodeProvider)
			e.log.Error(fmt.Sprintf("Provider %s panicked: %v", name, r))
		}
	}()

	fail := func(err error) Outcome {
		outcome.Status = StatusFailed
		outcome.ErrorCode = errors.CodeOf(err)
		outcome.ErrorMessage = err.Error()
		metrics.RecordProviderFailure(name, outcome.ErrorCode)
		e.log.WithError(err).Error(fmt.Sprintf("Provider %s failed", name))
		return outcome
	}

	deps, err := e.depsFor(name)
	if err != nil {
		return fail(err)
	}
	p, err := e.registry.Create(name, deps)
	if err != nil {
		return fail(err)
	}

	if err := p.Authenticate(ctx); err != nil {
		return fail(err)
	}

	invoices, err := p.ListInvoices(ctx, start, end)
	if err != nil {
		return fail(err)
	}
	outcome.InvoicesFound = len(invoices)

	if len(invoices) == 0 {
		return outcome
	}

	for _, inv := range invoices {
		if err := e.syncInvoice(ctx, p, inv, &outcome); err != nil {
			// Download failures are isolated per invoice; anything
			// else means the sink or session is broken, so stop.
			if errors.IsCode(err, errors.ErrCodeDownload) {
				outcome.InvoiceErrors = append(outcome.InvoiceErrors,
					fmt.Sprintf("%s: %v", inv.ID, err))
				metrics.RecordProviderFailure(name, errors.ErrCodeDownload)
				e.log.WithError(err).Warn(fmt.Sprintf("Provider %s: invoice %s skipped", name, inv.ID))
				continue
			}
			return fail(err)
		}
	}

	if len(outcome.InvoiceErrors) > 0 {
		outcome.Status = StatusPartial
	}
	return outcome
}

func (e *Engine) syncInvoice(ctx context.Context, p provider.Provider, inv invoice.Invoice, outcome *Outcome) error {
	pdf, err := p.DownloadInvoice(ctx, inv)
	if err != nil {
		return err
	}

	stored, err := p.StoreInvoice(ctx, inv, pdf)
	if err != nil {
		return err
	}
	if stored {
		outcome.DocumentsStored++
		metrics.RecordInvoiceSynced(p.Name())
	} else {
		outcome.DocumentsSkipped++
		metrics.RecordInvoiceSkipped(p.Name())
	}

	created, err := p.ScheduleReminder(ctx, inv)
	if err != nil {
		return err
	}
	if created {
		outcome.RemindersCreated++
	}
	return nil
}

func overallStatus(outcomes []Outcome) string {
	failed, ok := 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case StatusFailed:
			failed++
		default:
			ok++
		}
	}
	switch {
	case failed == 0:
		return StatusOK
	case ok == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

func toHistoryRun(r *Report) history.Run {
	run := history.Run{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		WindowStart: r.Start,
		WindowEnd:   r.End,
		Status:      r.Status,
	}
	for _, o := range r.Outcomes {
		run.Providers = append(run.Providers, history.ProviderResult{
			Provider:         o.Provider,
			Status:           o.Status,
			ErrorCode:        o.ErrorCode,
			ErrorMessage:     o.ErrorMessage,
			InvoicesFound:    o.InvoicesFound,
			DocumentsStored:  o.DocumentsStored,
			DocumentsSkipped: o.DocumentsSkipped,
			RemindersCreated: o.RemindersCreated,
		})
	}
	return run
}
