package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStore implements DocumentStore on Google Drive
type DriveStore struct {
	svc *drive.Service
}

// NewDriveStore builds a Drive-backed document store from the shared pass
// credential.
func NewDriveStore(ctx context.Context, ts oauth2.TokenSource) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &DriveStore{svc: svc}, nil
}

// escapeQuery escapes single quotes for Drive query literals
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}

// FindOrCreateFolder resolves a folder by exact name under parentID,
// creating it when absent.
func (d *DriveStore) FindOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if parentID == "" {
		parentID = "root"
	}

	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(name), parentID, folderMimeType)
	list, err := d.svc.Files.List().Q(q).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive folder lookup failed: %w", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive folder create failed: %w", err)
	}
	return folder.Id, nil
}

// FindFile returns the id of a file with that exact name under parentID, or
// "" when absent.
func (d *DriveStore) FindFile(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), parentID)
	list, err := d.svc.Files.List().Q(q).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive file lookup failed: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// CreateFile uploads data as a new file under parentID
func (d *DriveStore) CreateFile(ctx context.Context, name, parentID string, data []byte) (string, error) {
	file, err := d.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(bytes.NewReader(data)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive upload failed: %w", err)
	}
	return file.Id, nil
}
