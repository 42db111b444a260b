// Package teststore provides an in-memory store.Driver for tests.
package teststore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maiahq/maia/store"
)

// Driver keeps every document in memory. It honors the same semantics as
// the SQL drivers, including first-wins feedback.
type Driver struct {
	mu       sync.RWMutex
	tasks    map[string]*store.Task
	feedback map[string]*store.FeedbackRecord
	now      func() int64
}

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		tasks:    make(map[string]*store.Task),
		feedback: make(map[string]*store.FeedbackRecord),
		now:      func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the timestamp source. Tests use it to control ordering.
func (d *Driver) SetClock(now func() int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

func (d *Driver) GetDB() *sql.DB {
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) IsInitialized(context.Context) (bool, error) {
	return true, nil
}

func (d *Driver) Migrate(context.Context) error {
	return nil
}

func (d *Driver) CreateTask(_ context.Context, create *store.Task) (*store.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tasks[create.ID]; ok {
		return nil, fmt.Errorf("task already exists: %s", create.ID)
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = d.now()
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	copied := *create
	d.tasks[create.ID] = &copied
	return create, nil
}

func (d *Driver) ListTasks(_ context.Context, find *store.FindTask) ([]*store.Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := make([]*store.Task, 0)
	for _, task := range d.tasks {
		if v := find.ID; v != nil && task.ID != *v {
			continue
		}
		if v := find.UserID; v != nil && task.UserID != *v {
			continue
		}
		if v := find.Status; v != nil && task.Status != *v {
			continue
		}
		if v := find.CreationMethod; v != nil && task.CreationMethod != *v {
			continue
		}
		if v := find.SourceEmailID; v != nil && task.SourceEmailID != *v {
			continue
		}
		copied := *task
		list = append(list, &copied)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedTs != list[j].CreatedTs {
			return list[i].CreatedTs > list[j].CreatedTs
		}
		return list[i].ID > list[j].ID
	})

	if find.Offset != nil && *find.Offset < len(list) {
		list = list[*find.Offset:]
	} else if find.Offset != nil {
		list = nil
	}
	if find.Limit != nil && *find.Limit < len(list) {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *Driver) UpdateTask(_ context.Context, update *store.UpdateTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	task, ok := d.tasks[update.ID]
	if !ok {
		return fmt.Errorf("task not found: %s", update.ID)
	}
	if v := update.Description; v != nil {
		task.Description = *v
	}
	if v := update.Deadline; v != nil {
		task.Deadline = v
	}
	if v := update.Stakeholders; v != nil {
		task.Stakeholders = *v
	}
	if v := update.Status; v != nil {
		task.Status = *v
	}
	if v := update.UpdatedTs; v != nil {
		task.UpdatedTs = *v
	} else {
		task.UpdatedTs = d.now()
	}
	return nil
}

func (d *Driver) DeleteTask(_ context.Context, del *store.DeleteTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tasks[del.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	delete(d.tasks, del.ID)
	return nil
}

func (d *Driver) CreateFeedback(_ context.Context, create *store.FeedbackRecord) (*store.FeedbackRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.feedback[create.TaskID]; ok {
		return nil, store.ErrFeedbackExists
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = d.now()
	}
	copied := *create
	d.feedback[create.TaskID] = &copied
	return create, nil
}

func (d *Driver) ListFeedback(_ context.Context, find *store.FindFeedback) ([]*store.FeedbackRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := make([]*store.FeedbackRecord, 0)
	for _, record := range d.feedback {
		if v := find.TaskID; v != nil && record.TaskID != *v {
			continue
		}
		if v := find.UserID; v != nil && record.UserID != *v {
			continue
		}
		if v := find.Correct; v != nil && record.Correct != *v {
			continue
		}
		if v := find.CreatedAfter; v != nil && record.CreatedTs <= *v {
			continue
		}
		copied := *record
		list = append(list, &copied)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedTs != list[j].CreatedTs {
			return list[i].CreatedTs > list[j].CreatedTs
		}
		return list[i].TaskID > list[j].TaskID
	})

	if find.Limit != nil && *find.Limit < len(list) {
		list = list[:*find.Limit]
	}
	return list, nil
}
