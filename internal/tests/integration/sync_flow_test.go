package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/history"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
	"github.com/bollettalabs/bolletta-sync/internal/provider/fastwebenergia"
	"github.com/bollettalabs/bolletta-sync/internal/sink"
	"github.com/bollettalabs/bolletta-sync/internal/syncer"
	"github.com/bollettalabs/bolletta-sync/internal/testutil"
)

// energiaPortal fakes the MyFastweb Energia portal: token page, login ajax
// and the invoice list/download endpoints.
func energiaPortal(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/myfastweb-energia/login/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "sess-1", Path: "/"})
		fmt.Fprint(w, `<form><input name="securityToken" value="tok-1"></form>`)
	})
	mux.HandleFunc("/myfastweb-energia/login/ajax/", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("securityToken") != "tok-1" || r.FormValue("password") != "hunter2" {
			fmt.Fprint(w, `{"errorCode":1,"errorMessage":"bad credentials"}`)
			return
		}
		fmt.Fprint(w, `{"errorCode":0}`)
	})
	mux.HandleFunc("/myfastweb-energia/services/invoices/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"invoiceList":[
			{"NumDoc":"E-1","DocDateYMD":"2025-03-03","DocExpireDateYMD":"2025-03-18","DocAmount":45.30},
			{"NumDoc":"E-2","DocDateYMD":"2025-03-07","DocExpireDateYMD":"2025-03-22","DocAmount":61.20}]}`)
	})
	mux.HandleFunc("/myfastweb-energia/bollette/download/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "pdf for "+filepath.Base(r.URL.Path))
	})
	return mux
}

func TestFullSyncPass(t *testing.T) {
	portal := httptest.NewServer(energiaPortal(t))
	defer portal.Close()

	store := testutil.NewMockDocumentStore()
	reminders := testutil.NewMockReminderService()
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer hist.Close()

	log := logger.New(logger.Config{Level: "error", Format: "json"})

	registry := provider.NewRegistry()
	registry.Register(fastwebenergia.Name, fastwebenergia.New)

	depsFor := func(name string) (provider.Deps, error) {
		return provider.Deps{
			Credentials: config.ProviderCredentials{
				Username: "user@example.com",
				Password: "hunter2",
			},
			Sink: sink.New(store, reminders, sink.Options{
				RootFolder:   "Bollette",
				ReminderList: "Bollette",
			}, name),
			Logger:  log,
			BaseURL: portal.URL,
		}, nil
	}

	engine := syncer.New(registry, depsFor, hist, log)

	ctx := context.Background()
	req := syncer.Request{
		Start: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
	}

	report, err := engine.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Status != syncer.StatusOK {
		t.Fatalf("status = %s, want %s (outcomes %+v)", report.Status, syncer.StatusOK, report.Outcomes)
	}
	if len(report.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(report.Outcomes))
	}
	outcome := report.Outcomes[0]
	if outcome.InvoicesFound != 2 || outcome.DocumentsStored != 2 || outcome.RemindersCreated != 2 {
		t.Errorf("outcome = %+v", outcome)
	}

	// Documents landed under root/year/provider with derived names
	if len(store.Contents) != 2 {
		t.Errorf("stored %d documents, want 2", len(store.Contents))
	}
	rootID := store.Folders["/Bollette"]
	yearID := store.Folders[rootID+"/2025"]
	providerID := store.Folders[yearID+"/fastweb_energia"]
	if providerID == "" {
		t.Fatalf("provider folder missing, folders = %v", store.Folders)
	}
	fileID := store.Files[providerID+"/fastweb_energia_2025-03-03_E-1.pdf"]
	if fileID == "" {
		t.Fatalf("document E-1 missing, files = %v", store.Files)
	}
	if got := string(store.Contents[fileID]); got != "pdf for E-1-2025-03-03.pdf" {
		t.Errorf("document content = %q", got)
	}

	// Reminders due at midnight UTC of the due date
	listID := reminders.Lists["Bollette"]
	taskID := reminders.Tasks[listID+"/Pay fastweb_energia invoice E-1"]
	if taskID == "" {
		t.Fatalf("reminder for E-1 missing, tasks = %v", reminders.Tasks)
	}
	wantDue := time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC)
	if !reminders.Due[taskID].Equal(wantDue) {
		t.Errorf("due = %v, want %v", reminders.Due[taskID], wantDue)
	}

	// The pass is on the audit trail
	recorded, err := hist.GetRun(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if recorded.Status != syncer.StatusOK || len(recorded.Providers) != 1 {
		t.Errorf("recorded run = %+v", recorded)
	}
	if recorded.Providers[0].DocumentsStored != 2 {
		t.Errorf("recorded provider = %+v", recorded.Providers[0])
	}

	// A rerun stores nothing new
	rerun, err := engine.Run(ctx, req)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if rerun.Status != syncer.StatusOK {
		t.Fatalf("rerun status = %s", rerun.Status)
	}
	if got := rerun.Outcomes[0]; got.DocumentsStored != 0 || got.DocumentsSkipped != 2 {
		t.Errorf("rerun outcome = %+v", got)
	}
	if len(store.Contents) != 2 {
		t.Errorf("rerun uploaded documents, have %d", len(store.Contents))
	}
}
