package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const wizardProgressColumns = `id, user_id, organization_id, wizard_type, current_step, total_steps,
	progress_percentage, wizard_data, step_statuses, revision, last_saved_at, last_active_at,
	created_at, expires_at, reminder_task_id`

// UpsertWizardProgress writes a progress snapshot keyed by
// (user_id, organization_id, wizard_type). An existing row is overwritten
// last-write-wins and its revision bumped; expires_at slides forward on
// every save.
func (s *Store) UpsertWizardProgress(ctx context.Context, progress WizardProgress) (WizardProgress, error) {
	stepStatuses, err := json.Marshal(progress.StepStatuses)
	if err != nil {
		return WizardProgress{}, fmt.Errorf("marshal step statuses: %w", err)
	}
	wizardData := progress.WizardData
	if len(wizardData) == 0 {
		wizardData = json.RawMessage(`{}`)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO wizard_progress (
			id, user_id, organization_id, wizard_type, current_step, total_steps,
			progress_percentage, wizard_data, step_statuses, last_saved_at, last_active_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, NOW(), NOW(), $10)
		ON CONFLICT (user_id, organization_id, wizard_type) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			total_steps = EXCLUDED.total_steps,
			progress_percentage = EXCLUDED.progress_percentage,
			wizard_data = EXCLUDED.wizard_data,
			step_statuses = EXCLUDED.step_statuses,
			revision = wizard_progress.revision + 1,
			last_saved_at = NOW(),
			last_active_at = NOW(),
			expires_at = EXCLUDED.expires_at
		RETURNING `+wizardProgressColumns+`
	`, progress.ID, progress.UserID, progress.OrganizationID, progress.WizardType,
		progress.CurrentStep, progress.TotalSteps, progress.ProgressPercentage,
		[]byte(wizardData), stepStatuses, progress.ExpiresAt)

	return scanWizardProgress(row)
}

func (s *Store) GetWizardProgress(ctx context.Context, userID, organizationID, wizardType string) (WizardProgress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+wizardProgressColumns+`
		FROM wizard_progress
		WHERE user_id = $1 AND organization_id = $2 AND wizard_type = $3
	`, userID, organizationID, wizardType)
	return scanWizardProgress(row)
}

// TouchWizardProgress records activity on load: last_active_at moves to now
// and the expiry window slides with it.
func (s *Store) TouchWizardProgress(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE wizard_progress SET last_active_at = NOW(), expires_at = $2 WHERE id = $1
	`, id, expiresAt)
	if err != nil {
		return fmt.Errorf("touch wizard progress: %w", err)
	}
	return nil
}

func (s *Store) SetWizardProgressCompleted(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE wizard_progress
		SET progress_percentage = 100, revision = revision + 1, last_saved_at = NOW(), last_active_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("set wizard progress completed: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SetReminderTaskID(ctx context.Context, id string, taskID *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE wizard_progress SET reminder_task_id = $2 WHERE id = $1
	`, id, taskID)
	if err != nil {
		return fmt.Errorf("set reminder task id: %w", err)
	}
	return nil
}

func (s *Store) DeleteWizardProgress(ctx context.Context, userID, organizationID, wizardType string) (WizardProgress, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM wizard_progress
		WHERE user_id = $1 AND organization_id = $2 AND wizard_type = $3
		RETURNING `+wizardProgressColumns+`
	`, userID, organizationID, wizardType)
	return scanWizardProgress(row)
}

func (s *Store) ListIncompleteWizards(ctx context.Context, userID, organizationID string) ([]WizardProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+wizardProgressColumns+`
		FROM wizard_progress
		WHERE user_id = $1 AND organization_id = $2 AND progress_percentage < 100
		ORDER BY last_active_at DESC
	`, userID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list incomplete wizards: %w", err)
	}
	defer rows.Close()
	return collectWizardProgress(rows)
}

func (s *Store) ListExpiredWizardProgress(ctx context.Context, now time.Time, limit int) ([]WizardProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+wizardProgressColumns+`
		FROM wizard_progress
		WHERE expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired wizard progress: %w", err)
	}
	defer rows.Close()
	return collectWizardProgress(rows)
}

func (s *Store) DeleteWizardProgressByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wizard_progress WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wizard progress: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWizardProgress(row rowScanner) (WizardProgress, error) {
	var progress WizardProgress
	var wizardData, stepStatuses []byte
	err := row.Scan(
		&progress.ID, &progress.UserID, &progress.OrganizationID, &progress.WizardType,
		&progress.CurrentStep, &progress.TotalSteps, &progress.ProgressPercentage,
		&wizardData, &stepStatuses, &progress.Revision,
		&progress.LastSavedAt, &progress.LastActiveAt, &progress.CreatedAt, &progress.ExpiresAt,
		&progress.ReminderTaskID,
	)
	if err != nil {
		return WizardProgress{}, err
	}
	progress.WizardData = json.RawMessage(wizardData)
	if len(stepStatuses) > 0 {
		if err := json.Unmarshal(stepStatuses, &progress.StepStatuses); err != nil {
			return WizardProgress{}, fmt.Errorf("unmarshal step statuses: %w", err)
		}
	}
	return progress, nil
}

func collectWizardProgress(rows *sql.Rows) ([]WizardProgress, error) {
	var result []WizardProgress
	for rows.Next() {
		progress, err := scanWizardProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wizard progress: %w", err)
		}
		result = append(result, progress)
	}
	return result, rows.Err()
}
