package store

import (
	"encoding/json"
	"time"
)

type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID                    string
	OrganizationID        string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Wizard types a progress row may be keyed by.
const (
	WizardTypeClaim  = "claim"
	WizardTypeClient = "client"
	WizardTypePolicy = "policy"
)

func ValidWizardType(wizardType string) bool {
	switch wizardType {
	case WizardTypeClaim, WizardTypeClient, WizardTypePolicy:
		return true
	}
	return false
}

// StepStatus records per-step completion inside a wizard progress row.
type StepStatus struct {
	Completed        bool       `json:"completed"`
	Required         bool       `json:"required"`
	ValidationErrors []string   `json:"validation_errors,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// WizardProgress is one in-flight wizard per (user, organization, wizard type).
// Revision increments on every save; the remote store is last-write-wins and
// a stale revision is logged rather than rejected.
type WizardProgress struct {
	ID                 string
	UserID             string
	OrganizationID     string
	WizardType         string
	CurrentStep        int
	TotalSteps         int
	ProgressPercentage int
	WizardData         json.RawMessage
	StepStatuses       map[string]StepStatus
	Revision           int64
	LastSavedAt        time.Time
	LastActiveAt       time.Time
	CreatedAt          time.Time
	ExpiresAt          time.Time
	ReminderTaskID     *string
}

// Task statuses and types for the advisory reminder records.
const (
	TaskStatusPending   = "pending"
	TaskStatusCancelled = "cancelled"
	TaskStatusCompleted = "completed"

	TaskTypeWizardCompletion = "wizard_completion"
)

type Task struct {
	ID                string
	UserID            string
	OrganizationID    string
	Title             string
	Description       string
	Priority          string
	DueDate           time.Time
	Status            string
	TaskType          string
	RelatedEntityType string
	RelatedEntityID   string
	Metadata          map[string]any
	RemindedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Claim struct {
	ID              string
	OrganizationID  string
	ClaimNumber     string
	InsuredName     string
	CarrierName     string
	PolicyNumber    string
	Status          string
	LossDate        *time.Time
	LossDescription string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IntakeDocument is the metadata row for an uploaded policy document whose
// bytes live in the object archive.
type IntakeDocument struct {
	ID             string
	OrganizationID string
	UserID         string
	WizardType     string
	FileName       string
	ObjectKey      string
	ContentType    string
	SizeBytes      int64
	UploadedAt     time.Time
}
