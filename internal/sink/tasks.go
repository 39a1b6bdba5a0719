package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// errFound stops Pages iteration once the wanted title is seen
var errFound = errors.New("found")

// TasksReminders implements ReminderService on Google Tasks
type TasksReminders struct {
	svc *tasks.Service
}

// NewTasksReminders builds a Tasks-backed reminder service from the shared
// pass credential.
func NewTasksReminders(ctx context.Context, ts oauth2.TokenSource) (*TasksReminders, error) {
	svc, err := tasks.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}
	return &TasksReminders{svc: svc}, nil
}

// FindOrCreateList resolves a task list by exact title, creating it when
// absent.
func (t *TasksReminders) FindOrCreateList(ctx context.Context, name string) (string, error) {
	var listID string
	err := t.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(page *tasks.TaskLists) error {
		for _, l := range page.Items {
			if l.Title == name {
				listID = l.Id
				return errFound
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("task list lookup failed: %w", err)
	}
	if listID != "" {
		return listID, nil
	}

	created, err := t.svc.Tasklists.Insert(&tasks.TaskList{Title: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("task list create failed: %w", err)
	}
	return created.Id, nil
}

// FindTask returns the id of a task with that exact title in the list, or
// "". Completed and hidden tasks count: a paid bill must not come back.
func (t *TasksReminders) FindTask(ctx context.Context, title, listID string) (string, error) {
	var taskID string
	err := t.svc.Tasks.List(listID).ShowCompleted(true).ShowHidden(true).MaxResults(100).
		Pages(ctx, func(page *tasks.Tasks) error {
			for _, item := range page.Items {
				if item.Title == title {
					taskID = item.Id
					return errFound
				}
			}
			return nil
		})
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("task lookup failed: %w", err)
	}
	return taskID, nil
}

// CreateTask inserts a task with the given due timestamp and notes
func (t *TasksReminders) CreateTask(ctx context.Context, title string, due time.Time, notes, listID string) (string, error) {
	created, err := t.svc.Tasks.Insert(listID, &tasks.Task{
		Title: title,
		Due:   due.Format(time.RFC3339),
		Notes: notes,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("task create failed: %w", err)
	}
	return created.Id, nil
}
