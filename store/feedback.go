package store

// FeedbackRecord is a user's verdict on one extracted task. At most one
// record exists per task: the first submission wins and later ones are
// rejected.
type FeedbackRecord struct {
	TaskID string
	UserID string
	// Correct is the verdict: true confirms the extraction, false rejects it.
	Correct bool
	// Implicit marks feedback inferred from behavior (deleting an
	// autonomous task) rather than submitted directly.
	Implicit bool
	// Comments carries the user's free-form note on the verdict, or the
	// canned note attached to implicit feedback.
	Comments string
	// TaskDescription snapshots the task text at submission time so
	// examples survive task deletion.
	TaskDescription string
	SourceEmailID   string
	CreatedTs       int64
}

// FindFeedback filters feedback queries. Nil fields match everything.
type FindFeedback struct {
	TaskID  *string
	UserID  *string
	Correct *bool
	// CreatedAfter keeps only records newer than the given Unix timestamp.
	CreatedAfter *int64
	Limit        *int
}
