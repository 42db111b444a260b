package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrFeedbackExists is returned by CreateFeedback when a record already
// exists for the task. The first submission wins.
var ErrFeedbackExists = errors.New("feedback already exists for task")

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// Task model related methods.
	CreateTask(ctx context.Context, create *Task) (*Task, error)
	ListTasks(ctx context.Context, find *FindTask) ([]*Task, error)
	UpdateTask(ctx context.Context, update *UpdateTask) error
	DeleteTask(ctx context.Context, delete *DeleteTask) error

	// FeedbackRecord model related methods. CreateFeedback returns
	// ErrFeedbackExists when the task already has a record.
	CreateFeedback(ctx context.Context, create *FeedbackRecord) (*FeedbackRecord, error)
	ListFeedback(ctx context.Context, find *FindFeedback) ([]*FeedbackRecord, error)
}
