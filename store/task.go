package store

// TaskStatus is the lifecycle state of an extracted or manually created task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusArchivedIncorrect marks a task removed because the
	// extraction that produced it was wrong. Archived tasks stay queryable
	// as negative examples.
	TaskStatusArchivedIncorrect TaskStatus = "archived_incorrect"
)

// CreationMethod records how a task came to exist.
type CreationMethod string

const (
	CreationMethodManual CreationMethod = "manual"
	// CreationMethodAutonomous marks a task the extraction pipeline created
	// without the user asking for it.
	CreationMethodAutonomous CreationMethod = "autonomous"
)

// Task is an action item, usually extracted from an email.
type Task struct {
	ID             string
	UserID         string
	Description    string
	Deadline       *string
	Stakeholders   []string
	Status         TaskStatus
	SourceEmailID  string
	CreationMethod CreationMethod
	CreatedTs      int64
	UpdatedTs      int64
}

// FindTask filters task queries. Nil fields match everything.
type FindTask struct {
	ID             *string
	UserID         *string
	Status         *TaskStatus
	CreationMethod *CreationMethod
	SourceEmailID  *string
	Limit          *int
	Offset         *int
}

// UpdateTask carries a partial update. Nil fields are left unchanged.
type UpdateTask struct {
	ID           string
	Description  *string
	Deadline     *string
	Stakeholders *[]string
	Status       *TaskStatus
	UpdatedTs    *int64
}

// DeleteTask identifies the task to remove.
type DeleteTask struct {
	ID string
}
