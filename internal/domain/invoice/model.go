package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the common record every provider portal is normalized into.
// Values are immutable once constructed by an adapter; IDs are unique only
// within a provider+client-code pair.
type Invoice struct {
	ID           string          `json:"id"`
	DocumentDate time.Time       `json:"document_date"`
	DueDate      time.Time       `json:"due_date"`
	Amount       decimal.Decimal `json:"amount"`
	ClientCode   string          `json:"client_code"`
}

// DateLayout is the wire format for dates on the CLI and HTTP surfaces.
const DateLayout = "2006-01-02"

// Date builds a date-only UTC time
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO 8601 date (2025-01-01) into a date-only UTC time
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// InWindow reports whether the invoice's document date falls inside the
// inclusive [start, end] window.
func (i Invoice) InWindow(start, end time.Time) bool {
	d := i.DocumentDate
	return !d.Before(start) && !d.After(end)
}

// FilterWindow returns the invoices whose document date falls inside the
// inclusive [start, end] window, preserving provider order.
func FilterWindow(invoices []Invoice, start, end time.Time) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.InWindow(start, end) {
			out = append(out, inv)
		}
	}
	return out
}
