package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const taskColumns = `id, user_id, organization_id, title, description, priority, due_date, status,
	task_type, related_entity_type, related_entity_id, metadata, reminded_at, created_at, updated_at`

func (s *Store) InsertTask(ctx context.Context, task Task) error {
	metadata, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("marshal task metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, organization_id, title, description, priority, due_date, status,
			task_type, related_entity_type, related_entity_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
	`, task.ID, task.UserID, task.OrganizationID, task.Title, task.Description, task.Priority,
		task.DueDate, task.Status, task.TaskType, task.RelatedEntityType, task.RelatedEntityID, metadata)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id, organizationID string) (Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scanTask(row)
}

// UpdateReminderTask refreshes a pending reminder with a new due date and
// snapshot; cancelled or completed tasks are left alone.
func (s *Store) UpdateReminderTask(ctx context.Context, id string, task Task) error {
	metadata, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("marshal task metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, metadata = $5::jsonb,
			reminded_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, task.Title, task.Description, task.DueDate, metadata)
	if err != nil {
		return fmt.Errorf("update reminder task: %w", err)
	}
	return nil
}

func (s *Store) SetTaskStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, organizationID, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE organization_id = $1 AND user_id = $2
		ORDER BY due_date
	`, organizationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListDueReminders returns pending reminder tasks whose due date has passed
// and that have not been announced yet.
func (s *Store) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = 'pending' AND reminded_at IS NULL AND due_date <= $1
		ORDER BY due_date
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *Store) MarkTaskReminded(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET reminded_at = $2, updated_at = NOW() WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark task reminded: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var metadata []byte
	err := row.Scan(
		&task.ID, &task.UserID, &task.OrganizationID, &task.Title, &task.Description,
		&task.Priority, &task.DueDate, &task.Status, &task.TaskType,
		&task.RelatedEntityType, &task.RelatedEntityID, &metadata, &task.RemindedAt,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &task.Metadata); err != nil {
			return Task{}, fmt.Errorf("unmarshal task metadata: %w", err)
		}
	}
	return task, nil
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
