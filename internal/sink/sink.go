package sink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
)

// DocumentStore is the document side of the sink: a named-folder tree with
// exact-name file lookup.
type DocumentStore interface {
	// FindOrCreateFolder resolves a folder by exact name under parentID,
	// creating it when absent. Empty parentID means the store root.
	FindOrCreateFolder(ctx context.Context, name, parentID string) (string, error)
	// FindFile returns the id of a file with that exact name under parentID,
	// or "" when no such file exists.
	FindFile(ctx context.Context, name, parentID string) (string, error)
	// CreateFile uploads data as a new file under parentID.
	CreateFile(ctx context.Context, name, parentID string, data []byte) (string, error)
}

// ReminderService is the reminder side of the sink: named lists with
// exact-title task lookup.
type ReminderService interface {
	FindOrCreateList(ctx context.Context, name string) (string, error)
	// FindTask returns the id of a task with that exact title, or "".
	FindTask(ctx context.Context, title, listID string) (string, error)
	CreateTask(ctx context.Context, title string, due time.Time, notes, listID string) (string, error)
}

// Options configures the namespace roots shared by all providers
type Options struct {
	RootFolder   string
	ReminderList string
}

// Sink translates invoices into namespaced, collision-safe artifacts and
// reminders. One Sink serves one provider for one sync pass; the resolved
// namespace ids are cached on the instance and never persisted.
type Sink struct {
	store     DocumentStore
	reminders ReminderService
	opts      Options
	provider  string
	now       func() time.Time

	folderID string
	listID   string
}

// New creates a sink handle for one provider's pass
func New(store DocumentStore, reminders ReminderService, opts Options, provider string) *Sink {
	return &Sink{
		store:     store,
		reminders: reminders,
		opts:      opts,
		provider:  provider,
		now:       time.Now,
	}
}

// ArtifactName derives the deterministic document name for an invoice:
// {provider}_{YYYY-MM-DD}_{id}.pdf
func ArtifactName(provider string, inv invoice.Invoice) string {
	return fmt.Sprintf("%s_%s_%s.pdf", provider, inv.DocumentDate.Format(invoice.DateLayout), inv.ID)
}

// ReminderTitle derives the deterministic reminder title for an invoice
func ReminderTitle(provider string, inv invoice.Invoice) string {
	return fmt.Sprintf("Pay %s invoice %s", provider, inv.ID)
}

// EnsureNamespace resolves the root/currentYear/provider folder chain and
// the reminder list, caching both ids for the remainder of the pass. Every
// run pays one find-or-create round trip per namespace.
func (s *Sink) EnsureNamespace(ctx context.Context) error {
	if s.folderID == "" {
		rootID, err := s.store.FindOrCreateFolder(ctx, s.opts.RootFolder, "")
		if err != nil {
			return err
		}
		yearID, err := s.store.FindOrCreateFolder(ctx, strconv.Itoa(s.now().Year()), rootID)
		if err != nil {
			return err
		}
		providerID, err := s.store.FindOrCreateFolder(ctx, s.provider, yearID)
		if err != nil {
			return err
		}
		s.folderID = providerID
	}

	if s.listID == "" {
		listID, err := s.reminders.FindOrCreateList(ctx, s.opts.ReminderList)
		if err != nil {
			return err
		}
		s.listID = listID
	}

	return nil
}

// StoreInvoice uploads the invoice document under its deterministic name.
// Returns false when a file with that exact name already exists in the
// provider's namespace folder, which makes overlapping-window re-runs safe.
func (s *Sink) StoreInvoice(ctx context.Context, inv invoice.Invoice, pdf []byte) (bool, error) {
	if err := s.EnsureNamespace(ctx); err != nil {
		return false, err
	}

	name := ArtifactName(s.provider, inv)
	existing, err := s.store.FindFile(ctx, name, s.folderID)
	if err != nil {
		return false, err
	}
	if existing != "" {
		return false, nil
	}

	if _, err := s.store.CreateFile(ctx, name, s.folderID, pdf); err != nil {
		return false, err
	}
	return true, nil
}

// ScheduleReminder creates the payment reminder for the invoice, due at the
// invoice due date (midnight UTC) with the amount in the notes. Returns
// false when a reminder with the exact title already exists.
func (s *Sink) ScheduleReminder(ctx context.Context, inv invoice.Invoice) (bool, error) {
	if err := s.EnsureNamespace(ctx); err != nil {
		return false, err
	}

	title := ReminderTitle(s.provider, inv)
	existing, err := s.reminders.FindTask(ctx, title, s.listID)
	if err != nil {
		return false, err
	}
	if existing != "" {
		return false, nil
	}

	due := time.Date(inv.DueDate.Year(), inv.DueDate.Month(), inv.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	notes := fmt.Sprintf("Amount: %s EUR", inv.Amount.StringFixed(2))
	if _, err := s.reminders.CreateTask(ctx, title, due, notes, s.listID); err != nil {
		return false, err
	}
	return true, nil
}
