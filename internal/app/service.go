package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"claimguru/api/internal/archive"
	"claimguru/api/internal/auth"
	"claimguru/api/internal/authpw"
	"claimguru/api/internal/config"
	"claimguru/api/internal/email"
	"claimguru/api/internal/export"
	"claimguru/api/internal/rbac"
	"claimguru/api/internal/search"
	"claimguru/api/internal/session"
	"claimguru/api/internal/store"
	"claimguru/api/internal/util"
	"claimguru/api/internal/wizard"
	"claimguru/api/internal/wizard/confirm"
	"claimguru/api/internal/wizard/validate"
)

type Session struct {
	Token          string
	RefreshToken   string
	UserID         string
	UserName       string
	OrganizationID string
	Role           string
	JTI            string
	ExpiresAt      time.Time
}

// dataStore is the slice of the relational store the app layer consumes
// directly. The wizard service carries its own narrower interface.
type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	GetOrganization(context.Context, string) (store.Organization, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	GetClaim(ctx context.Context, id, organizationID string) (store.Claim, error)
	ListClaims(ctx context.Context, organizationID string) ([]store.Claim, error)
	UpdateClaimStatus(ctx context.Context, id, organizationID, status string) error

	GetTask(ctx context.Context, id, organizationID string) (store.Task, error)
	ListTasks(ctx context.Context, organizationID, userID string) ([]store.Task, error)
	SetTaskStatus(ctx context.Context, id, status string) error
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]store.Task, error)
	MarkTaskReminded(ctx context.Context, id string, at time.Time) error

	InsertIntakeDocument(ctx context.Context, doc store.IntakeDocument) error
	GetIntakeDocument(ctx context.Context, id, organizationID string) (store.IntakeDocument, error)
	ListIntakeDocuments(ctx context.Context, organizationID, userID string) ([]store.IntakeDocument, error)

	Ping(ctx context.Context) error
}

// refreshStore persists refresh sessions, Redis-backed in production.
type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

var allowedClaimStatuses = map[string]struct{}{
	"open":          {},
	"investigating": {},
	"negotiating":   {},
	"settled":       {},
	"closed":        {},
	"denied":        {},
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	wizards  *wizard.Service
	states   session.WizardStateStore
	authpw   *authpw.Service
	email    *email.Service
	search   *search.Service
	export   *export.Service
	archive  *archive.Store
}

func New(
	cfg config.Config,
	dataStore dataStore,
	sessions refreshStore,
	wizards *wizard.Service,
	states session.WizardStateStore,
	authService *authpw.Service,
	emailService *email.Service,
	searchService *search.Service,
	archiveStore *archive.Store,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		wizards:  wizards,
		states:   states,
		authpw:   authService,
		email:    emailService,
		search:   searchService,
		export:   export.NewService(),
		archive:  archiveStore,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// ── Sessions ──

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Org:  user.OrganizationID,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:          token,
		RefreshToken:   refresh,
		UserID:         user.ID,
		UserName:       user.DisplayName,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		JTI:            jti,
		ExpiresAt:      expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:          token,
		UserID:         user.ID,
		UserName:       user.DisplayName,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		JTI:            claims.JTI,
		ExpiresAt:      time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ── Wizard progress ──

type SaveWizardInput struct {
	WizardType         string                      `json:"wizardType"`
	CurrentStep        int                         `json:"currentStep"`
	TotalSteps         int                         `json:"totalSteps"`
	ProgressPercentage int                         `json:"progressPercentage"`
	WizardData         json.RawMessage             `json:"wizardData"`
	StepStatuses       map[string]store.StepStatus `json:"stepStatuses"`
	Revision           int64                       `json:"revision"`
}

func (s *Service) SaveWizardProgress(ctx context.Context, sess Session, input SaveWizardInput) (map[string]any, error) {
	saved, err := s.wizards.SaveProgress(ctx, wizard.SaveInput{
		UserID:             sess.UserID,
		OrganizationID:     sess.OrganizationID,
		WizardType:         input.WizardType,
		CurrentStep:        input.CurrentStep,
		TotalSteps:         input.TotalSteps,
		ProgressPercentage: input.ProgressPercentage,
		WizardData:         input.WizardData,
		StepStatuses:       input.StepStatuses,
		Revision:           input.Revision,
	})
	if err != nil {
		return nil, err
	}
	return progressPayload(saved), nil
}

func (s *Service) LoadWizardProgress(ctx context.Context, sess Session, wizardType string) (map[string]any, error) {
	progress, err := s.wizards.LoadProgress(ctx, sess.UserID, sess.OrganizationID, wizardType)
	if err != nil {
		return nil, err
	}
	return progressPayload(progress), nil
}

func (s *Service) DeleteWizardProgress(ctx context.Context, sess Session, wizardType string) error {
	if err := s.wizards.DeleteProgress(ctx, sess.UserID, sess.OrganizationID, wizardType); err != nil {
		return err
	}
	return s.states.DeleteState(ctx, sess.OrganizationID, sess.UserID, wizardType)
}

func (s *Service) ListIncompleteWizards(ctx context.Context, sess Session) ([]map[string]any, error) {
	items, err := s.wizards.ListIncomplete(ctx, sess.UserID, sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, progressPayload(item))
	}
	return payloads, nil
}

func (s *Service) CompleteWizard(ctx context.Context, sess Session, wizardType string, finalData json.RawMessage) (map[string]any, error) {
	progress, err := s.wizards.MarkCompleted(ctx, sess.UserID, sess.OrganizationID, wizardType, finalData)
	if err != nil {
		return nil, err
	}
	// The live field registry belongs to the in-flight session; a completed
	// wizard no longer needs it.
	_ = s.states.DeleteState(ctx, sess.OrganizationID, sess.UserID, wizardType)
	return progressPayload(progress), nil
}

func (s *Service) CleanupExpiredWizards(ctx context.Context) (int, error) {
	return s.wizards.CleanupExpiredProgress(ctx)
}

func progressPayload(progress store.WizardProgress) map[string]any {
	payload := map[string]any{
		"id":                 progress.ID,
		"wizardType":         progress.WizardType,
		"currentStep":        progress.CurrentStep,
		"totalSteps":         progress.TotalSteps,
		"progressPercentage": progress.ProgressPercentage,
		"wizardData":         progress.WizardData,
		"stepStatuses":       progress.StepStatuses,
		"revision":           progress.Revision,
		"lastSavedAt":        progress.LastSavedAt,
		"lastActiveAt":       progress.LastActiveAt,
		"expiresAt":          progress.ExpiresAt,
	}
	if progress.ReminderTaskID != nil {
		payload["reminderTaskId"] = *progress.ReminderTaskID
	}
	return payload
}

// ── Step validation ──

func (s *Service) ValidateWizardStep(stepID string, data map[string]any) (validate.StepResult, error) {
	for _, known := range validate.StepIDs() {
		if known == stepID {
			return validate.ValidateStep(stepID, data), nil
		}
	}
	return validate.StepResult{}, domainError(http.StatusUnprocessableEntity, "UNKNOWN_STEP", fmt.Sprintf("unknown step %q", stepID), nil)
}

func (s *Service) ValidateAllWizardSteps(data map[string]any) map[string]validate.StepResult {
	return validate.ValidateAllSteps(data, validate.StepIDs())
}

// ── Field confirmation registry ──

// withRegistry rehydrates the live registry for this wizard session, applies
// the mutation, and persists the updated snapshot.
func (s *Service) withRegistry(ctx context.Context, sess Session, wizardType string, fn func(*confirm.Registry) error) (*confirm.Registry, error) {
	if !store.ValidWizardType(wizardType) {
		return nil, wizard.ErrUnknownWizardType
	}
	registry := confirm.NewRegistry(nil)
	blob, found, err := s.states.LoadState(ctx, sess.OrganizationID, sess.UserID, wizardType)
	if err != nil {
		return nil, fmt.Errorf("load field registry: %w", err)
	}
	if found {
		if err := registry.ImportState(blob); err != nil {
			return nil, fmt.Errorf("decode field registry: %w", err)
		}
	}

	if fn != nil {
		if err := fn(registry); err != nil {
			return nil, err
		}
		updated, err := registry.ExportState()
		if err != nil {
			return nil, fmt.Errorf("encode field registry: %w", err)
		}
		if err := s.states.SaveState(ctx, sess.OrganizationID, sess.UserID, wizardType, updated); err != nil {
			return nil, fmt.Errorf("save field registry: %w", err)
		}
	}
	return registry, nil
}

func (s *Service) InitializeWizardFields(ctx context.Context, sess Session, wizardType string, extracted map[string]any, meta confirm.ExtractionMetadata) (map[string]any, error) {
	registry, err := s.withRegistry(ctx, sess, wizardType, func(r *confirm.Registry) error {
		r.InitializeWithExtractedData(extracted, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"summary": registry.Summary(), "version": registry.Version()}, nil
}

func (s *Service) ConfirmWizardField(ctx context.Context, sess Session, wizardType, path string, finalValue any) (map[string]any, error) {
	return s.mutateField(ctx, sess, wizardType, path, func(r *confirm.Registry) {
		r.ConfirmField(path, finalValue, sess.UserName)
	})
}

func (s *Service) RejectWizardField(ctx context.Context, sess Session, wizardType, path, reason string) (map[string]any, error) {
	return s.mutateField(ctx, sess, wizardType, path, func(r *confirm.Registry) {
		r.RejectField(path, reason)
	})
}

func (s *Service) ModifyWizardField(ctx context.Context, sess Session, wizardType, path string, value any) (map[string]any, error) {
	return s.mutateField(ctx, sess, wizardType, path, func(r *confirm.Registry) {
		r.ModifyField(path, value, confirm.SourceUserEntered)
	})
}

func (s *Service) mutateField(ctx context.Context, sess Session, wizardType, path string, mutate func(*confirm.Registry)) (map[string]any, error) {
	registry, err := s.withRegistry(ctx, sess, wizardType, func(r *confirm.Registry) error {
		if _, ok := r.GetField(path); !ok {
			return domainError(http.StatusNotFound, "FIELD_NOT_FOUND", fmt.Sprintf("field %q is not tracked", path), nil)
		}
		mutate(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	field, _ := registry.GetField(path)
	return map[string]any{
		"path":    path,
		"field":   field,
		"summary": registry.Summary(),
		"version": registry.Version(),
	}, nil
}

func (s *Service) BulkConfirmWizardFields(ctx context.Context, sess Session, wizardType string, paths []string) (map[string]any, error) {
	confirmed := 0
	registry, err := s.withRegistry(ctx, sess, wizardType, func(r *confirm.Registry) error {
		confirmed = r.BulkConfirm(paths, sess.UserName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"confirmed": confirmed,
		"requested": len(paths),
		"summary":   registry.Summary(),
		"version":   registry.Version(),
	}, nil
}

func (s *Service) WizardFieldSummary(ctx context.Context, sess Session, wizardType string) (map[string]any, error) {
	registry, err := s.withRegistry(ctx, sess, wizardType, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"summary":          registry.Summary(),
		"needingAttention": registry.FieldsNeedingAttention(),
		"version":          registry.Version(),
	}, nil
}

func (s *Service) WizardConfirmedValues(ctx context.Context, sess Session, wizardType string) (map[string]any, error) {
	registry, err := s.withRegistry(ctx, sess, wizardType, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"values":  registry.ConfirmedValues(),
		"version": registry.Version(),
	}, nil
}

// ── Claims ──

func (s *Service) ListClaims(ctx context.Context, sess Session) ([]map[string]any, error) {
	claims, err := s.store.ListClaims(ctx, sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(claims))
	for _, claim := range claims {
		payloads = append(payloads, claimPayload(claim))
	}
	return payloads, nil
}

func (s *Service) GetClaim(ctx context.Context, sess Session, claimID string) (map[string]any, error) {
	claim, err := s.store.GetClaim(ctx, claimID, sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	return claimPayload(claim), nil
}

func (s *Service) UpdateClaimStatus(ctx context.Context, sess Session, claimID, status string) (map[string]any, error) {
	if _, ok := allowedClaimStatuses[status]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown claim status", nil)
	}
	if err := s.store.UpdateClaimStatus(ctx, claimID, sess.OrganizationID, status); err != nil {
		return nil, err
	}
	claim, err := s.store.GetClaim(ctx, claimID, sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexClaim(search.ClaimRecord{
			ID:              claim.ID,
			ClaimNumber:     claim.ClaimNumber,
			InsuredName:     claim.InsuredName,
			CarrierName:     claim.CarrierName,
			LossDescription: claim.LossDescription,
			OrganizationID:  claim.OrganizationID,
			Status:          claim.Status,
		})
	}
	return claimPayload(claim), nil
}

// ExportClaimSummary renders the claim as a PDF, appending the requesting
// user's confirmed fields from the claim wizard registry when present.
func (s *Service) ExportClaimSummary(ctx context.Context, sess Session, claimID string) (*export.Result, error) {
	claim, err := s.store.GetClaim(ctx, claimID, sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, sess.OrganizationID)
	if err != nil {
		return nil, err
	}

	rows := []export.FieldRow(nil)
	registry, err := s.withRegistry(ctx, sess, store.WizardTypeClaim, nil)
	if err == nil {
		rows = confirmedFieldRows(registry)
	}

	result, err := s.export.ClaimSummary(export.ClaimInfo{
		ID:              claim.ID,
		ClaimNumber:     claim.ClaimNumber,
		InsuredName:     claim.InsuredName,
		CarrierName:     claim.CarrierName,
		PolicyNumber:    claim.PolicyNumber,
		Status:          claim.Status,
		LossDate:        claim.LossDate,
		LossDescription: claim.LossDescription,
		CreatedAt:       claim.CreatedAt,
	}, org.Name, rows)
	if err != nil {
		return nil, err
	}

	// Keep a copy of every exported summary in the archive alongside the
	// intake documents. A failed archival does not fail the download.
	if s.archive != nil {
		key := sess.OrganizationID + "/exports/" + claim.ID + "/" + result.Filename
		if err := s.archive.Upload(ctx, key, bytes.NewReader(result.Data), int64(len(result.Data)), result.MimeType); err != nil {
			log.Printf("export: archive claim summary %s: %v", claim.ID, err)
		}
	}
	return result, nil
}

func confirmedFieldRows(registry *confirm.Registry) []export.FieldRow {
	fields := registry.FieldsByStatus(confirm.StatusConfirmed)
	for path, field := range registry.FieldsByStatus(confirm.StatusModified) {
		fields[path] = field
	}

	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	rows := make([]export.FieldRow, 0, len(paths))
	for _, path := range paths {
		field := fields[path]
		rows = append(rows, export.FieldRow{
			Path:        path,
			Value:       fmt.Sprintf("%v", field.Value),
			Status:      string(field.Status),
			Confidence:  string(field.Confidence),
			ConfirmedBy: field.ConfirmedBy,
		})
	}
	return rows
}

func claimPayload(claim store.Claim) map[string]any {
	payload := map[string]any{
		"id":              claim.ID,
		"claimNumber":     claim.ClaimNumber,
		"insuredName":     claim.InsuredName,
		"carrierName":     claim.CarrierName,
		"policyNumber":    claim.PolicyNumber,
		"status":          claim.Status,
		"lossDescription": claim.LossDescription,
		"createdBy":       claim.CreatedBy,
		"createdAt":       claim.CreatedAt,
		"updatedAt":       claim.UpdatedAt,
	}
	if claim.LossDate != nil {
		payload["lossDate"] = claim.LossDate.Format("2006-01-02")
	}
	return payload
}

// ── Tasks ──

func (s *Service) ListTasks(ctx context.Context, sess Session) ([]map[string]any, error) {
	tasks, err := s.store.ListTasks(ctx, sess.OrganizationID, sess.UserID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		payloads = append(payloads, taskPayload(task))
	}
	return payloads, nil
}

func (s *Service) SetTaskStatus(ctx context.Context, sess Session, taskID, status string) (map[string]any, error) {
	if status != store.TaskStatusPending && status != store.TaskStatusCompleted && status != store.TaskStatusCancelled {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown task status", nil)
	}
	task, err := s.store.GetTask(ctx, taskID, sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTaskStatus(ctx, task.ID, status); err != nil {
		return nil, err
	}
	task.Status = status
	return taskPayload(task), nil
}

func taskPayload(task store.Task) map[string]any {
	payload := map[string]any{
		"id":                task.ID,
		"title":             task.Title,
		"description":       task.Description,
		"priority":          task.Priority,
		"dueDate":           task.DueDate,
		"status":            task.Status,
		"taskType":          task.TaskType,
		"relatedEntityType": task.RelatedEntityType,
		"relatedEntityId":   task.RelatedEntityID,
		"metadata":          task.Metadata,
		"createdAt":         task.CreatedAt,
	}
	if task.RemindedAt != nil {
		payload["remindedAt"] = *task.RemindedAt
	}
	return payload
}

// DispatchDueReminders emails users whose wizard reminder tasks have come
// due. Each task is marked reminded after one attempt so a broken mailbox
// cannot wedge the dispatch loop.
func (s *Service) DispatchDueReminders(ctx context.Context, logf func(format string, args ...any)) (int, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	due, err := s.store.ListDueReminders(ctx, time.Now(), 100)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := 0
	for _, task := range due {
		if s.SMTPConfigured() {
			if err := s.sendReminderEmail(ctx, task); err != nil {
				logf("reminder: send for task %s: %v", task.ID, err)
			} else {
				sent++
			}
		}
		if err := s.store.MarkTaskReminded(ctx, task.ID, time.Now()); err != nil {
			logf("reminder: mark task %s reminded: %v", task.ID, err)
		}
	}
	return sent, nil
}

func (s *Service) sendReminderEmail(ctx context.Context, task store.Task) error {
	user, err := s.store.GetUserByID(ctx, task.UserID)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", task.UserID, err)
	}
	wizardType := metadataString(task.Metadata, "wizard_type")
	if wizardType == "" {
		wizardType = "claim"
	}
	resumeURL := s.cfg.AppBaseURL + "/wizards/" + wizardType
	return s.email.SendWizardReminderEmail(
		user.Email,
		user.DisplayName,
		wizardType,
		metadataInt(task.Metadata, "current_step"),
		metadataInt(task.Metadata, "total_steps"),
		resumeURL,
	)
}

func metadataString(metadata map[string]any, key string) string {
	value, _ := metadata[key].(string)
	return value
}

func metadataInt(metadata map[string]any, key string) int {
	switch value := metadata[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	}
	return 0
}

// ── Search ──

func (s *Service) Search(ctx context.Context, sess Session, text, filterType string, limit, offset int) (search.Response, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := search.Query{
		Text:           text,
		OrganizationID: sess.OrganizationID,
		Limit:          limit,
		Offset:         offset,
	}
	switch filterType {
	case "":
	case string(search.ResultClaim):
		query.FilterType = search.ResultClaim
	case string(search.ResultTask):
		query.FilterType = search.ResultTask
	default:
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be 'claim' or 'task'", nil)
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(query), nil
}

// ── Intake documents ──

func (s *Service) UploadIntakeDocument(ctx context.Context, sess Session, wizardType, fileName, contentType string, size int64, body io.Reader, extracted map[string]any, meta confirm.ExtractionMetadata) (map[string]any, error) {
	if s.archive == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Document archive not configured", nil)
	}
	if !store.ValidWizardType(wizardType) {
		return nil, wizard.ErrUnknownWizardType
	}

	doc := store.IntakeDocument{
		ID:             util.NewID("doc"),
		OrganizationID: sess.OrganizationID,
		UserID:         sess.UserID,
		WizardType:     wizardType,
		FileName:       fileName,
		ContentType:    contentType,
		SizeBytes:      size,
	}
	doc.ObjectKey = sess.OrganizationID + "/" + doc.ID + "/" + fileName

	if err := s.archive.Upload(ctx, doc.ObjectKey, body, size, contentType); err != nil {
		return nil, fmt.Errorf("archive upload: %w", err)
	}
	if err := s.store.InsertIntakeDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("record intake document: %w", err)
	}

	payload := map[string]any{"document": documentPayload(doc)}
	if len(extracted) > 0 {
		if meta.SourceDocument == "" {
			meta.SourceDocument = fileName
		}
		fieldInfo, err := s.InitializeWizardFields(ctx, sess, wizardType, extracted, meta)
		if err != nil {
			return nil, err
		}
		payload["fields"] = fieldInfo
	}
	return payload, nil
}

func (s *Service) ListIntakeDocuments(ctx context.Context, sess Session) ([]map[string]any, error) {
	docs, err := s.store.ListIntakeDocuments(ctx, sess.OrganizationID, sess.UserID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		payloads = append(payloads, documentPayload(doc))
	}
	return payloads, nil
}

func (s *Service) IntakeDocumentDownloadURL(ctx context.Context, sess Session, documentID string) (string, error) {
	if s.archive == nil {
		return "", domainError(http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Document archive not configured", nil)
	}
	doc, err := s.store.GetIntakeDocument(ctx, documentID, sess.OrganizationID)
	if err != nil {
		return "", err
	}
	return s.archive.PresignDownload(ctx, doc.ObjectKey, 15*time.Minute)
}

func documentPayload(doc store.IntakeDocument) map[string]any {
	return map[string]any{
		"id":          doc.ID,
		"wizardType":  doc.WizardType,
		"fileName":    doc.FileName,
		"contentType": doc.ContentType,
		"sizeBytes":   doc.SizeBytes,
		"uploadedAt":  doc.UploadedAt,
	}
}
