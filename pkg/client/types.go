package client

// SyncRequest triggers a sync pass. Zero values select every provider
// over the default window.
type SyncRequest struct {
	Providers []string `json:"providers,omitempty"`
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
}

// Outcome is one provider's result within a pass
type Outcome struct {
	Provider         string   `json:"provider"`
	Status           string   `json:"status"`
	ErrorCode        string   `json:"error_code,omitempty"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	InvoicesFound    int      `json:"invoices_found"`
	DocumentsStored  int      `json:"documents_stored"`
	DocumentsSkipped int      `json:"documents_skipped"`
	RemindersCreated int      `json:"reminders_created"`
	InvoiceErrors    []string `json:"invoice_errors,omitempty"`
}

// Report is the result of one sync pass
type Report struct {
	ID         string    `json:"id"`
	StartedAt  string    `json:"started_at"`
	FinishedAt string    `json:"finished_at"`
	Start      string    `json:"window_start"`
	End        string    `json:"window_end"`
	Status     string    `json:"status"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Provider describes one registered portal adapter
type Provider struct {
	ID         string `json:"id"`
	Configured bool   `json:"configured"`
}

// Run is a recorded sync pass from the history
type Run struct {
	ID          string        `json:"id"`
	StartedAt   string        `json:"started_at"`
	FinishedAt  string        `json:"finished_at"`
	WindowStart string        `json:"window_start"`
	WindowEnd   string        `json:"window_end"`
	Status      string        `json:"status"`
	Providers   []RunProvider `json:"providers,omitempty"`
}

// RunProvider is the per-provider outcome inside a recorded run
type RunProvider struct {
	Provider         string `json:"provider"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	InvoicesFound    int    `json:"invoices_found"`
	DocumentsStored  int    `json:"documents_stored"`
	DocumentsSkipped int    `json:"documents_skipped"`
	RemindersCreated int    `json:"reminders_created"`
}

// HealthResponse is the health probe payload
type HealthResponse struct {
	Status string `json:"status"`
}
