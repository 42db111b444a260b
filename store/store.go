package store

import (
	"context"

	"github.com/maiahq/maia/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate brings the schema up to date on a fresh or existing database.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateTask(ctx context.Context, create *Task) (*Task, error) {
	return s.driver.CreateTask(ctx, create)
}

func (s *Store) ListTasks(ctx context.Context, find *FindTask) ([]*Task, error) {
	return s.driver.ListTasks(ctx, find)
}

// GetTask returns the task with the given ID, or nil when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	tasks, err := s.driver.ListTasks(ctx, &FindTask{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

func (s *Store) UpdateTask(ctx context.Context, update *UpdateTask) error {
	return s.driver.UpdateTask(ctx, update)
}

func (s *Store) DeleteTask(ctx context.Context, delete *DeleteTask) error {
	return s.driver.DeleteTask(ctx, delete)
}

func (s *Store) CreateFeedback(ctx context.Context, create *FeedbackRecord) (*FeedbackRecord, error) {
	return s.driver.CreateFeedback(ctx, create)
}

func (s *Store) ListFeedback(ctx context.Context, find *FindFeedback) ([]*FeedbackRecord, error) {
	return s.driver.ListFeedback(ctx, find)
}

// GetFeedback returns the feedback record for a task, or nil when absent.
func (s *Store) GetFeedback(ctx context.Context, taskID string) (*FeedbackRecord, error) {
	records, err := s.driver.ListFeedback(ctx, &FindFeedback{TaskID: &taskID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
