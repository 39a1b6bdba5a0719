package provider

import (
	"context"

	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/sink"
)

// Base is the capability object shared by all adapters: it carries the sink
// handle and a provider-scoped logger, so portal-specific code never talks
// to the storage or reminder backends directly. Adapters embed it.
type Base struct {
	name string
	sink *sink.Sink
	log  *logger.Logger
}

// NewBase creates the shared capability object for an adapter
func NewBase(name string, s *sink.Sink, log *logger.Logger) Base {
	return Base{
		name: name,
		sink: s,
		log:  log.With("provider", name),
	}
}

// Name returns the provider identifier
func (b *Base) Name() string {
	return b.name
}

// Log returns the provider-scoped logger
func (b *Base) Log() *logger.Logger {
	return b.log
}

// EnsureNamespace resolves the provider's storage folder and reminder list
func (b *Base) EnsureNamespace(ctx context.Context) error {
	return b.sink.EnsureNamespace(ctx)
}

// StoreInvoice uploads the invoice document through the shared sink.
// Returns false when the artifact already existed.
func (b *Base) StoreInvoice(ctx context.Context, inv invoice.Invoice, pdf []byte) (bool, error) {
	return b.sink.StoreInvoice(ctx, inv, pdf)
}

// ScheduleReminder creates the payment reminder through the shared sink.
// Returns false when the reminder already existed.
func (b *Base) ScheduleReminder(ctx context.Context, inv invoice.Invoice) (bool, error) {
	return b.sink.ScheduleReminder(ctx, inv)
}
