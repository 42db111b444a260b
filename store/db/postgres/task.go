package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/maiahq/maia/store"
)

func (d *DB) CreateTask(ctx context.Context, create *store.Task) (*store.Task, error) {
	fields := []string{
		"id", "user_id", "description", "deadline", "stakeholders",
		"status", "source_email_id", "creation_method",
	}
	var deadline any
	if create.Deadline != nil {
		deadline = *create.Deadline
	}
	placeholderValues := []any{
		create.ID, create.UserID, create.Description, deadline,
		marshalStringList(create.Stakeholders),
		create.Status, create.SourceEmailID, create.CreationMethod,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO task (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return create, nil
}

func (d *DB) ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "task.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "task.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "task.status = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := find.CreationMethod; v != nil {
		where, args = append(where, "task.creation_method = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := find.SourceEmailID; v != nil {
		where, args = append(where, "task.source_email_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, user_id, description, deadline, stakeholders,
			status, source_email_id, creation_method, created_ts, updated_ts
		FROM task
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY task.created_ts DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Task, 0)
	for rows.Next() {
		var task store.Task
		var deadline sql.NullString
		var stakeholders string

		if err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Description,
			&deadline,
			&stakeholders,
			&task.Status,
			&task.SourceEmailID,
			&task.CreationMethod,
			&task.CreatedTs,
			&task.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if deadline.Valid {
			task.Deadline = &deadline.String
		}
		task.Stakeholders = unmarshalStringList(stakeholders)

		list = append(list, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateTask(ctx context.Context, update *store.UpdateTask) error {
	set, args := []string{}, []any{}

	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Deadline; v != nil {
		set, args = append(set, "deadline = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Stakeholders; v != nil {
		set, args = append(set, "stakeholders = "+placeholder(len(args)+1)), append(args, marshalStringList(*v))
	}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)

	stmt := `UPDATE task SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

func (d *DB) DeleteTask(ctx context.Context, delete *store.DeleteTask) error {
	stmt := `DELETE FROM task WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}
