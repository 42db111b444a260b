package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/maiahq/maia/store"
)

func (d *DB) CreateFeedback(ctx context.Context, create *store.FeedbackRecord) (*store.FeedbackRecord, error) {
	fields := []string{
		"task_id", "user_id", "correct", "implicit", "comments",
		"task_description", "source_email_id",
	}
	placeholderValues := []any{
		create.TaskID, create.UserID, create.Correct, create.Implicit, create.Comments,
		create.TaskDescription, create.SourceEmailID,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	// First submission wins.
	stmt := `INSERT INTO task_feedback (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		ON CONFLICT (task_id) DO NOTHING
		RETURNING created_ts`

	// DO NOTHING suppresses the RETURNING row on conflict.
	var createdTs int64
	err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(&createdTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFeedbackExists
		}
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	create.CreatedTs = createdTs

	return create, nil
}

func (d *DB) ListFeedback(ctx context.Context, find *store.FindFeedback) ([]*store.FeedbackRecord, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.TaskID; v != nil {
		where, args = append(where, "task_feedback.task_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "task_feedback.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Correct; v != nil {
		where, args = append(where, "task_feedback.correct = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedAfter; v != nil {
		where, args = append(where, "task_feedback.created_ts > "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			task_id, user_id, correct, implicit, comments,
			task_description, source_email_id, created_ts
		FROM task_feedback
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY task_feedback.created_ts DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	list := make([]*store.FeedbackRecord, 0)
	for rows.Next() {
		var record store.FeedbackRecord
		if err := rows.Scan(
			&record.TaskID,
			&record.UserID,
			&record.Correct,
			&record.Implicit,
			&record.Comments,
			&record.TaskDescription,
			&record.SourceEmailID,
			&record.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		list = append(list, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	return list, nil
}
