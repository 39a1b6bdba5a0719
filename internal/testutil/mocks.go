package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/captcha"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
)

// MockDocumentStore is an in-memory implementation of sink.DocumentStore
type MockDocumentStore struct {
	mu sync.Mutex

	// Folders maps "parentID/name" to folder id
	Folders map[string]string
	// Files maps "parentID/name" to file id
	Files map[string]string
	// Contents maps file id to uploaded bytes
	Contents map[string][]byte

	NextID      int
	FolderCalls int
	CreateCalls int

	FolderError error
	FindError   error
	CreateError error
}

func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		Folders:  make(map[string]string),
		Files:    make(map[string]string),
		Contents: make(map[string][]byte),
		NextID:   1,
	}
}

func (m *MockDocumentStore) nextID(prefix string) string {
	id := fmt.Sprintf("%s-%d", prefix, m.NextID)
	m.NextID++
	return id
}

func (m *MockDocumentStore) FindOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FolderCalls++
	if m.FolderError != nil {
		return "", m.FolderError
	}

	key := parentID + "/" + name
	if id, ok := m.Folders[key]; ok {
		return id, nil
	}
	id := m.nextID("folder")
	m.Folders[key] = id
	return id, nil
}

func (m *MockDocumentStore) FindFile(ctx context.Context, name, parentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindError != nil {
		return "", m.FindError
	}
	return m.Files[parentID+"/"+name], nil
}

func (m *MockDocumentStore) CreateFile(ctx context.Context, name, parentID string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++
	if m.CreateError != nil {
		return "", m.CreateError
	}

	id := m.nextID("file")
	m.Files[parentID+"/"+name] = id
	m.Contents[id] = data
	return id, nil
}

// MockReminderService is an in-memory implementation of sink.ReminderService
type MockReminderService struct {
	mu sync.Mutex

	// Lists maps list name to list id
	Lists map[string]string
	// Tasks maps "listID/title" to task id
	Tasks map[string]string
	// Due maps task id to its due time
	Due map[string]time.Time
	// Notes maps task id to its notes
	Notes map[string]string

	NextID int

	ListError   error
	FindError   error
	CreateError error
}

func NewMockReminderService() *MockReminderService {
	return &MockReminderService{
		Lists:  make(map[string]string),
		Tasks:  make(map[string]string),
		Due:    make(map[string]time.Time),
		Notes:  make(map[string]string),
		NextID: 1,
	}
}

func (m *MockReminderService) FindOrCreateList(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return "", m.ListError
	}
	if id, ok := m.Lists[name]; ok {
		return id, nil
	}
	id := fmt.Sprintf("list-%d", m.NextID)
	m.NextID++
	m.Lists[name] = id
	return id, nil
}

func (m *MockReminderService) FindTask(ctx context.Context, title, listID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindError != nil {
		return "", m.FindError
	}
	return m.Tasks[listID+"/"+title], nil
}

func (m *MockReminderService) CreateTask(ctx context.Context, title string, due time.Time, notes, listID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return "", m.CreateError
	}

	id := fmt.Sprintf("task-%d", m.NextID)
	m.NextID++
	m.Tasks[listID+"/"+title] = id
	m.Due[id] = due
	m.Notes[id] = notes
	return id, nil
}

// MockSolver is a captcha.Solver returning a fixed token
type MockSolver struct {
	Token string
	Err   error

	Calls    int
	LastSite string
	LastVer  captcha.Version
}

func (m *MockSolver) Solve(ctx context.Context, siteKey, pageURL string, version captcha.Version) (string, error) {
	m.Calls++
	m.LastSite = siteKey
	m.LastVer = version
	if m.Err != nil {
		return "", m.Err
	}
	if m.Token == "" {
		return "mock-captcha-token", nil
	}
	return m.Token, nil
}

// Invoice builds a test invoice with sensible defaults
func Invoice(id, docDate, dueDate, amount string) invoice.Invoice {
	doc, err := invoice.ParseDate(docDate)
	if err != nil {
		panic(err)
	}
	due, err := invoice.ParseDate(dueDate)
	if err != nil {
		panic(err)
	}
	amt, err := invoice.ParseAmount(amount)
	if err != nil {
		panic(err)
	}
	return invoice.Invoice{
		ID:           id,
		DocumentDate: doc,
		DueDate:      due,
		Amount:       amt,
	}
}
