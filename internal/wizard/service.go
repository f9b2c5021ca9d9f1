// Package wizard persists in-flight wizard sessions so a long multi-step
// form survives interruption, and nudges users back to incomplete wizards
// through advisory reminder tasks.
package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"claimguru/api/internal/store"
	"claimguru/api/internal/util"
)

// progressStore is the slice of the relational store this service consumes.
type progressStore interface {
	UpsertWizardProgress(ctx context.Context, progress store.WizardProgress) (store.WizardProgress, error)
	GetWizardProgress(ctx context.Context, userID, organizationID, wizardType string) (store.WizardProgress, error)
	TouchWizardProgress(ctx context.Context, id string, expiresAt time.Time) error
	SetWizardProgressCompleted(ctx context.Context, id string) error
	SetReminderTaskID(ctx context.Context, id string, taskID *string) error
	DeleteWizardProgress(ctx context.Context, userID, organizationID, wizardType string) (store.WizardProgress, error)
	DeleteWizardProgressByID(ctx context.Context, id string) error
	ListIncompleteWizards(ctx context.Context, userID, organizationID string) ([]store.WizardProgress, error)
	ListExpiredWizardProgress(ctx context.Context, now time.Time, limit int) ([]store.WizardProgress, error)

	InsertTask(ctx context.Context, task store.Task) error
	UpdateReminderTask(ctx context.Context, id string, task store.Task) error
	SetTaskStatus(ctx context.Context, id, status string) error

	InsertClaim(ctx context.Context, claim store.Claim) error
}

type Service struct {
	store        progressStore
	logger       *log.Logger
	ttl          time.Duration
	reminderLead time.Duration
	now          func() time.Time
}

func NewService(progressStore progressStore, logger *log.Logger, ttl, reminderLead time.Duration) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:        progressStore,
		logger:       logger,
		ttl:          ttl,
		reminderLead: reminderLead,
		now:          time.Now,
	}
}

// SaveInput is one autosave or explicit-save snapshot.
type SaveInput struct {
	UserID             string
	OrganizationID     string
	WizardType         string
	CurrentStep        int
	TotalSteps         int
	ProgressPercentage int
	WizardData         json.RawMessage
	StepStatuses       map[string]store.StepStatus
	// Revision the client last observed; zero when unknown. Used only to
	// log stale writes — the store is last-write-wins.
	Revision int64
}

var ErrUnknownWizardType = errors.New("unknown wizard type")

// SaveProgress upserts the snapshot by (user, organization, wizard type),
// sliding the expiry window forward, then manages the completion reminder
// task. Task management failures are logged, never returned: a reminder
// hiccup must not fail an autosave.
func (s *Service) SaveProgress(ctx context.Context, input SaveInput) (store.WizardProgress, error) {
	if !store.ValidWizardType(input.WizardType) {
		return store.WizardProgress{}, ErrUnknownWizardType
	}

	progress := store.WizardProgress{
		ID:                 util.NewID("wzp"),
		UserID:             input.UserID,
		OrganizationID:     input.OrganizationID,
		WizardType:         input.WizardType,
		CurrentStep:        input.CurrentStep,
		TotalSteps:         input.TotalSteps,
		ProgressPercentage: input.ProgressPercentage,
		WizardData:         input.WizardData,
		StepStatuses:       input.StepStatuses,
		ExpiresAt:          s.now().Add(s.ttl),
	}

	saved, err := s.store.UpsertWizardProgress(ctx, progress)
	if err != nil {
		return store.WizardProgress{}, fmt.Errorf("save wizard progress: %w", err)
	}

	if input.Revision > 0 && saved.Revision != input.Revision+1 {
		s.logger.Printf("wizard: stale save for %s/%s/%s (client revision %d, stored %d); last write wins",
			input.UserID, input.OrganizationID, input.WizardType, input.Revision, saved.Revision)
	}

	s.manageReminderTask(ctx, &saved)
	return saved, nil
}

// manageReminderTask keeps at most one pending wizard_completion task per
// progress row: cancelled once the wizard hits 100%, otherwise created or
// refreshed with a due date one lead interval out.
func (s *Service) manageReminderTask(ctx context.Context, progress *store.WizardProgress) {
	if progress.ProgressPercentage >= 100 {
		if progress.ReminderTaskID != nil {
			s.cancelTask(ctx, progress)
		}
		return
	}

	task := store.Task{
		UserID:         progress.UserID,
		OrganizationID: progress.OrganizationID,
		Title:          fmt.Sprintf("Complete %s wizard", progress.WizardType),
		Description: fmt.Sprintf(
			"You have an incomplete %s wizard at step %d of %d. Please complete it to avoid losing progress.",
			progress.WizardType, progress.CurrentStep, progress.TotalSteps),
		Priority:          "medium",
		DueDate:           s.now().Add(s.reminderLead),
		Status:            store.TaskStatusPending,
		TaskType:          store.TaskTypeWizardCompletion,
		RelatedEntityType: "wizard_progress",
		RelatedEntityID:   progress.ID,
		Metadata: map[string]any{
			"wizard_type":         progress.WizardType,
			"current_step":        progress.CurrentStep,
			"total_steps":         progress.TotalSteps,
			"progress_percentage": progress.ProgressPercentage,
			"last_saved_at":       progress.LastSavedAt.UTC().Format(time.RFC3339),
		},
	}

	if progress.ReminderTaskID != nil {
		if err := s.store.UpdateReminderTask(ctx, *progress.ReminderTaskID, task); err != nil {
			s.logger.Printf("wizard: update reminder task %s: %v", *progress.ReminderTaskID, err)
		}
		return
	}

	task.ID = util.NewID("tsk")
	if err := s.store.InsertTask(ctx, task); err != nil {
		s.logger.Printf("wizard: create reminder task for %s: %v", progress.ID, err)
		return
	}
	if err := s.store.SetReminderTaskID(ctx, progress.ID, &task.ID); err != nil {
		s.logger.Printf("wizard: link reminder task %s to %s: %v", task.ID, progress.ID, err)
		return
	}
	progress.ReminderTaskID = &task.ID
}

func (s *Service) cancelTask(ctx context.Context, progress *store.WizardProgress) {
	if err := s.store.SetTaskStatus(ctx, *progress.ReminderTaskID, store.TaskStatusCancelled); err != nil {
		s.logger.Printf("wizard: cancel reminder task %s: %v", *progress.ReminderTaskID, err)
		return
	}
	if err := s.store.SetReminderTaskID(ctx, progress.ID, nil); err != nil {
		s.logger.Printf("wizard: unlink reminder task from %s: %v", progress.ID, err)
		return
	}
	progress.ReminderTaskID = nil
}

// LoadProgress fetches the in-flight wizard and records the activity,
// sliding the expiry window. sql.ErrNoRows passes through for the caller
// to map to a not-found.
func (s *Service) LoadProgress(ctx context.Context, userID, organizationID, wizardType string) (store.WizardProgress, error) {
	if !store.ValidWizardType(wizardType) {
		return store.WizardProgress{}, ErrUnknownWizardType
	}
	progress, err := s.store.GetWizardProgress(ctx, userID, organizationID, wizardType)
	if err != nil {
		return store.WizardProgress{}, err
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.store.TouchWizardProgress(ctx, progress.ID, expiresAt); err != nil {
		s.logger.Printf("wizard: touch progress %s: %v", progress.ID, err)
	} else {
		progress.LastActiveAt = s.now()
		progress.ExpiresAt = expiresAt
	}
	return progress, nil
}

// MarkCompleted forces the wizard to 100%, persists the final snapshot,
// cancels the reminder task, and materializes a claim row for claim
// wizards.
func (s *Service) MarkCompleted(ctx context.Context, userID, organizationID, wizardType string, finalData json.RawMessage) (store.WizardProgress, error) {
	progress, err := s.store.GetWizardProgress(ctx, userID, organizationID, wizardType)
	if err != nil {
		return store.WizardProgress{}, err
	}

	if len(finalData) > 0 {
		saved, err := s.store.UpsertWizardProgress(ctx, store.WizardProgress{
			ID:                 util.NewID("wzp"),
			UserID:             userID,
			OrganizationID:     organizationID,
			WizardType:         wizardType,
			CurrentStep:        progress.TotalSteps,
			TotalSteps:         progress.TotalSteps,
			ProgressPercentage: 100,
			WizardData:         finalData,
			StepStatuses:       progress.StepStatuses,
			ExpiresAt:          s.now().Add(s.ttl),
		})
		if err != nil {
			return store.WizardProgress{}, fmt.Errorf("persist final snapshot: %w", err)
		}
		progress = saved
	} else {
		if err := s.store.SetWizardProgressCompleted(ctx, progress.ID); err != nil {
			return store.WizardProgress{}, fmt.Errorf("mark wizard completed: %w", err)
		}
		progress.ProgressPercentage = 100
	}

	if progress.ReminderTaskID != nil {
		s.cancelTask(ctx, &progress)
	}

	if wizardType == store.WizardTypeClaim {
		if err := s.materializeClaim(ctx, progress); err != nil {
			s.logger.Printf("wizard: materialize claim from %s: %v", progress.ID, err)
		}
	}
	return progress, nil
}

// materializeClaim lifts the completed wizard data into a claim row.
func (s *Service) materializeClaim(ctx context.Context, progress store.WizardProgress) error {
	var data map[string]any
	if len(progress.WizardData) > 0 {
		if err := json.Unmarshal(progress.WizardData, &data); err != nil {
			return fmt.Errorf("decode wizard data: %w", err)
		}
	}

	claim := store.Claim{
		ID:              util.NewID("clm"),
		OrganizationID:  progress.OrganizationID,
		ClaimNumber:     stringAt(data, "claimDetails", "claimNumber"),
		InsuredName:     joinNonEmpty(stringAt(data, "insuredDetails", "firstName"), stringAt(data, "insuredDetails", "lastName")),
		CarrierName:     stringAt(data, "insuranceCarrier", "name"),
		PolicyNumber:    stringAt(data, "policyDetails", "policyNumber"),
		Status:          "open",
		LossDescription: stringAt(data, "lossDetails", "lossDescription"),
		CreatedBy:       progress.UserID,
	}
	if claim.ClaimNumber == "" {
		claim.ClaimNumber = util.NewID("CLM")
	}
	if raw := stringAt(data, "lossDetails", "dateOfLoss"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			claim.LossDate = &t
		} else if t, err := time.Parse(time.RFC3339, raw); err == nil {
			claim.LossDate = &t
		}
	}
	return s.store.InsertClaim(ctx, claim)
}

func stringAt(data map[string]any, keys ...string) string {
	current := any(data)
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = node[key]
	}
	s, _ := current.(string)
	return s
}

func joinNonEmpty(parts ...string) string {
	joined := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if joined != "" {
			joined += " "
		}
		joined += part
	}
	return joined
}

// DeleteProgress removes the row and cancels its reminder task.
func (s *Service) DeleteProgress(ctx context.Context, userID, organizationID, wizardType string) error {
	progress, err := s.store.DeleteWizardProgress(ctx, userID, organizationID, wizardType)
	if err != nil {
		return err
	}
	if progress.ReminderTaskID != nil {
		if err := s.store.SetTaskStatus(ctx, *progress.ReminderTaskID, store.TaskStatusCancelled); err != nil {
			s.logger.Printf("wizard: cancel reminder task %s after delete: %v", *progress.ReminderTaskID, err)
		}
	}
	return nil
}

func (s *Service) ListIncomplete(ctx context.Context, userID, organizationID string) ([]store.WizardProgress, error) {
	return s.store.ListIncompleteWizards(ctx, userID, organizationID)
}

// CleanupExpiredProgress sweeps rows past their expiry, cancelling any
// reminder tasks they still reference. Returns the number of rows removed.
func (s *Service) CleanupExpiredProgress(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredWizardProgress(ctx, s.now(), 200)
	if err != nil {
		return 0, fmt.Errorf("list expired progress: %w", err)
	}

	removed := 0
	for _, progress := range expired {
		if progress.ReminderTaskID != nil {
			if err := s.store.SetTaskStatus(ctx, *progress.ReminderTaskID, store.TaskStatusCancelled); err != nil {
				s.logger.Printf("wizard: cancel reminder task %s during sweep: %v", *progress.ReminderTaskID, err)
			}
		}
		if err := s.store.DeleteWizardProgressByID(ctx, progress.ID); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Printf("wizard: delete expired progress %s: %v", progress.ID, err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}
