package dto

// SyncRequest triggers a sync pass. All fields are optional: omitting
// providers selects every registered one, omitting the window uses the
// default trailing range.
type SyncRequest struct {
	Providers []string `json:"providers" validate:"omitempty,min=1,dive,required"`
	Start     string   `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End       string   `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

// ProviderDTO describes one registered portal adapter
type ProviderDTO struct {
	ID         string `json:"id"`
	Configured bool   `json:"configured"`
}

// RunDTO is a recorded sync pass
type RunDTO struct {
	ID          string           `json:"id"`
	StartedAt   string           `json:"started_at"`
	FinishedAt  string           `json:"finished_at"`
	WindowStart string           `json:"window_start"`
	WindowEnd   string           `json:"window_end"`
	Status      string           `json:"status"`
	Providers   []RunProviderDTO `json:"providers,omitempty"`
}

// RunProviderDTO is the per-provider outcome inside a recorded run
type RunProviderDTO struct {
	Provider         string `json:"provider"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	InvoicesFound    int    `json:"invoices_found"`
	DocumentsStored  int    `json:"documents_stored"`
	DocumentsSkipped int    `json:"documents_skipped"`
	RemindersCreated int    `json:"reminders_created"`
}
