package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"claimguru/api/internal/authpw"
	"claimguru/api/internal/config"
	"claimguru/api/internal/email"
	"claimguru/api/internal/session"
	"claimguru/api/internal/store"
	"claimguru/api/internal/util"
	"claimguru/api/internal/wizard"
)

// fakeStore satisfies both the app data store and the wizard progress store.
type fakeStore struct {
	users      map[string]store.User
	orgs       map[string]store.Organization
	progress   map[string]store.WizardProgress
	tasks      map[string]store.Task
	claims     map[string]store.Claim
	documents  map[string]store.IntakeDocument
	revokedJTI map[string]bool
	pingErr    error
	failUpsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]store.User),
		orgs:       make(map[string]store.Organization),
		progress:   make(map[string]store.WizardProgress),
		tasks:      make(map[string]store.Task),
		claims:     make(map[string]store.Claim),
		documents:  make(map[string]store.IntakeDocument),
		revokedJTI: make(map[string]bool),
	}
}

func progressKey(userID, organizationID, wizardType string) string {
	return userID + "|" + organizationID + "|" + wizardType
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	user, ok := f.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) GetOrganization(_ context.Context, id string) (store.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return store.Organization{}, sql.ErrNoRows
	}
	return org, nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.revokedJTI[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	return f.revokedJTI[jti], nil
}

func (f *fakeStore) UpsertWizardProgress(_ context.Context, progress store.WizardProgress) (store.WizardProgress, error) {
	if f.failUpsert {
		return store.WizardProgress{}, errors.New("database unavailable")
	}
	key := progressKey(progress.UserID, progress.OrganizationID, progress.WizardType)
	existing, ok := f.progress[key]
	if ok {
		progress.ID = existing.ID
		progress.Revision = existing.Revision + 1
		progress.ReminderTaskID = existing.ReminderTaskID
		progress.CreatedAt = existing.CreatedAt
	} else {
		progress.Revision = 1
		progress.CreatedAt = time.Now()
	}
	progress.LastSavedAt = time.Now()
	progress.LastActiveAt = time.Now()
	f.progress[key] = progress
	return progress, nil
}

func (f *fakeStore) GetWizardProgress(_ context.Context, userID, organizationID, wizardType string) (store.WizardProgress, error) {
	progress, ok := f.progress[progressKey(userID, organizationID, wizardType)]
	if !ok {
		return store.WizardProgress{}, sql.ErrNoRows
	}
	return progress, nil
}

func (f *fakeStore) TouchWizardProgress(_ context.Context, id string, expiresAt time.Time) error {
	for key, progress := range f.progress {
		if progress.ID == id {
			progress.LastActiveAt = time.Now()
			progress.ExpiresAt = expiresAt
			f.progress[key] = progress
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) SetWizardProgressCompleted(_ context.Context, id string) error {
	for key, progress := range f.progress {
		if progress.ID == id {
			progress.ProgressPercentage = 100
			progress.CurrentStep = progress.TotalSteps
			f.progress[key] = progress
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) SetReminderTaskID(_ context.Context, id string, taskID *string) error {
	for key, progress := range f.progress {
		if progress.ID == id {
			progress.ReminderTaskID = taskID
			f.progress[key] = progress
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) DeleteWizardProgress(_ context.Context, userID, organizationID, wizardType string) (store.WizardProgress, error) {
	key := progressKey(userID, organizationID, wizardType)
	progress, ok := f.progress[key]
	if !ok {
		return store.WizardProgress{}, sql.ErrNoRows
	}
	delete(f.progress, key)
	return progress, nil
}

func (f *fakeStore) DeleteWizardProgressByID(_ context.Context, id string) error {
	for key, progress := range f.progress {
		if progress.ID == id {
			delete(f.progress, key)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) ListIncompleteWizards(_ context.Context, userID, organizationID string) ([]store.WizardProgress, error) {
	items := []store.WizardProgress{}
	for _, progress := range f.progress {
		if progress.UserID == userID && progress.OrganizationID == organizationID && progress.ProgressPercentage < 100 {
			items = append(items, progress)
		}
	}
	return items, nil
}

func (f *fakeStore) ListExpiredWizardProgress(_ context.Context, now time.Time, _ int) ([]store.WizardProgress, error) {
	items := []store.WizardProgress{}
	for _, progress := range f.progress {
		if progress.ExpiresAt.Before(now) {
			items = append(items, progress)
		}
	}
	return items, nil
}

func (f *fakeStore) InsertTask(_ context.Context, task store.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeStore) UpdateReminderTask(_ context.Context, id string, task store.Task) error {
	existing, ok := f.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Title = task.Title
	existing.Description = task.Description
	existing.DueDate = task.DueDate
	existing.Metadata = task.Metadata
	existing.RemindedAt = nil
	f.tasks[id] = existing
	return nil
}

func (f *fakeStore) SetTaskStatus(_ context.Context, id, status string) error {
	task, ok := f.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	task.Status = status
	f.tasks[id] = task
	return nil
}

func (f *fakeStore) GetTask(_ context.Context, id, organizationID string) (store.Task, error) {
	task, ok := f.tasks[id]
	if !ok || task.OrganizationID != organizationID {
		return store.Task{}, sql.ErrNoRows
	}
	return task, nil
}

func (f *fakeStore) ListTasks(_ context.Context, organizationID, userID string) ([]store.Task, error) {
	items := []store.Task{}
	for _, task := range f.tasks {
		if task.OrganizationID == organizationID && task.UserID == userID {
			items = append(items, task)
		}
	}
	return items, nil
}

func (f *fakeStore) ListDueReminders(_ context.Context, now time.Time, _ int) ([]store.Task, error) {
	items := []store.Task{}
	for _, task := range f.tasks {
		if task.Status == store.TaskStatusPending && task.RemindedAt == nil && !task.DueDate.After(now) {
			items = append(items, task)
		}
	}
	return items, nil
}

func (f *fakeStore) MarkTaskReminded(_ context.Context, id string, at time.Time) error {
	task, ok := f.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	task.RemindedAt = &at
	f.tasks[id] = task
	return nil
}

func (f *fakeStore) InsertClaim(_ context.Context, claim store.Claim) error {
	f.claims[claim.ID] = claim
	return nil
}

func (f *fakeStore) GetClaim(_ context.Context, id, organizationID string) (store.Claim, error) {
	claim, ok := f.claims[id]
	if !ok || claim.OrganizationID != organizationID {
		return store.Claim{}, sql.ErrNoRows
	}
	return claim, nil
}

func (f *fakeStore) ListClaims(_ context.Context, organizationID string) ([]store.Claim, error) {
	items := []store.Claim{}
	for _, claim := range f.claims {
		if claim.OrganizationID == organizationID {
			items = append(items, claim)
		}
	}
	return items, nil
}

func (f *fakeStore) UpdateClaimStatus(_ context.Context, id, organizationID, status string) error {
	claim, ok := f.claims[id]
	if !ok || claim.OrganizationID != organizationID {
		return sql.ErrNoRows
	}
	claim.Status = status
	f.claims[id] = claim
	return nil
}

func (f *fakeStore) InsertIntakeDocument(_ context.Context, doc store.IntakeDocument) error {
	f.documents[doc.ID] = doc
	return nil
}

func (f *fakeStore) GetIntakeDocument(_ context.Context, id, organizationID string) (store.IntakeDocument, error) {
	doc, ok := f.documents[id]
	if !ok || doc.OrganizationID != organizationID {
		return store.IntakeDocument{}, sql.ErrNoRows
	}
	return doc, nil
}

func (f *fakeStore) ListIntakeDocuments(_ context.Context, organizationID, userID string) ([]store.IntakeDocument, error) {
	items := []store.IntakeDocument{}
	for _, doc := range f.documents {
		if doc.OrganizationID == organizationID && doc.UserID == userID {
			items = append(items, doc)
		}
	}
	return items, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:    "test-secret",
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
		AppBaseURL:   "http://localhost:5173",
		ProgressTTL:  720 * time.Hour,
		ReminderLead: 24 * time.Hour,
	}
}

func newTestServer(t *testing.T, fs *fakeStore) (*HTTPServer, *Service) {
	t.Helper()
	cfg := testConfig()
	wizardService := wizard.NewService(fs, nil, cfg.ProgressTTL, cfg.ReminderLead)
	states := session.NewMemoryWizardState(cfg.ProgressTTL)
	service := New(cfg, fs, session.NewMemoryStore(), wizardService, states, authpw.NewService(nil), email.NewService(email.Config{}), nil, nil)
	return NewHTTPServer(service, "*"), service
}

func seedUser(fs *fakeStore, role string) store.User {
	org := store.Organization{ID: util.NewID("org"), Name: "Reyes Adjusting"}
	fs.orgs[org.ID] = org
	user := store.User{
		ID:              util.NewID("usr"),
		OrganizationID:  org.ID,
		DisplayName:     "Dana Reyes",
		Email:           "dana@example.com",
		Role:            role,
		IsEmailVerified: true,
	}
	fs.users[user.ID] = user
	return user
}

func signIn(t *testing.T, service *Service, userID string) Session {
	t.Helper()
	sess, err := service.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, newFakeStore())
	recorder := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if payload := decodeResponse(t, recorder); payload["ok"] != true {
		t.Errorf("ok = %v", payload["ok"])
	}
}

func TestReadyDatabaseDown(t *testing.T) {
	fs := newFakeStore()
	fs.pingErr = errors.New("connection refused")
	server, _ := newTestServer(t, fs)
	recorder := doJSON(t, server, http.MethodGet, "/api/ready", "", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestRequiresBearerToken(t *testing.T) {
	server, _ := newTestServer(t, newFakeStore())
	recorder := doJSON(t, server, http.MethodGet, "/api/tasks", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestWizardSaveLoadRoundTrip(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/progress", sess.Token, map[string]any{
		"wizardType":         "claim",
		"currentStep":        3,
		"totalSteps":         6,
		"progressPercentage": 50,
		"wizardData":         map[string]any{"clientDetails": map[string]any{"firstName": "Dana"}},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	if payload["saved"] != true {
		t.Fatalf("saved = %v", payload["saved"])
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/wizard/progress/claim", sess.Token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("load status = %d: %s", recorder.Code, recorder.Body.String())
	}
	progress, ok := decodeResponse(t, recorder)["progress"].(map[string]any)
	if !ok {
		t.Fatal("missing progress payload")
	}
	if progress["currentStep"] != float64(3) || progress["progressPercentage"] != float64(50) {
		t.Errorf("unexpected progress: %v", progress)
	}
	if progress["revision"] != float64(1) {
		t.Errorf("revision = %v", progress["revision"])
	}

	// A save below 100% schedules a reminder task.
	if len(fs.tasks) != 1 {
		t.Fatalf("expected one reminder task, got %d", len(fs.tasks))
	}
}

func TestWizardAutosaveStoreFailureReturnsSavedFalse(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	fs.failUpsert = true
	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/progress", sess.Token, map[string]any{
		"wizardType":  "claim",
		"currentStep": 1,
		"totalSteps":  6,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if payload := decodeResponse(t, recorder); payload["saved"] != false {
		t.Errorf("saved = %v", payload["saved"])
	}
}

func TestWizardUnknownTypeRejected(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/progress", sess.Token, map[string]any{
		"wizardType": "vacation",
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestViewerCannotSaveWizard(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "viewer")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/progress", sess.Token, map[string]any{
		"wizardType": "claim",
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestCleanupRequiresManageRole(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)

	adjuster := seedUser(fs, "adjuster")
	sess := signIn(t, service, adjuster.ID)
	recorder := doJSON(t, server, http.MethodPost, "/api/admin/wizard/cleanup", sess.Token, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("adjuster cleanup status = %d", recorder.Code)
	}

	admin := seedUser(fs, "admin")
	sess = signIn(t, service, admin.ID)
	recorder = doJSON(t, server, http.MethodPost, "/api/admin/wizard/cleanup", sess.Token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("admin cleanup status = %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestStepValidationEndpoint(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/claim/validate", sess.Token, map[string]any{
		"stepId": "client-details",
		"data": map[string]any{
			"clientDetails": map[string]any{"firstName": "Jo"},
		},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	if payload["isValid"] != false {
		t.Errorf("isValid = %v", payload["isValid"])
	}
	missing, _ := payload["missingRequiredFields"].([]any)
	if len(missing) == 0 {
		t.Error("expected missing required fields")
	}
}

func TestFieldConfirmationLifecycle(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/claim/fields/initialize", sess.Token, map[string]any{
		"extractedData": map[string]any{
			"policyDetails.policyNumber": "POL-123456",
			"clientDetails.firstName":    "Dana",
		},
		"metadata": map[string]any{"method": "ocr", "sourceDocument": "policy.pdf"},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("initialize status = %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/wizard/claim/fields/confirm", sess.Token, map[string]any{
		"path": "policyDetails.policyNumber",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("confirm status = %d: %s", recorder.Code, recorder.Body.String())
	}
	field, _ := decodeResponse(t, recorder)["field"].(map[string]any)
	if field["status"] != "confirmed" {
		t.Errorf("field status = %v", field["status"])
	}
	if field["confirmedBy"] != "Dana Reyes" {
		t.Errorf("confirmedBy = %v", field["confirmedBy"])
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/wizard/claim/fields/summary", sess.Token, nil)
	summary, _ := decodeResponse(t, recorder)["summary"].(map[string]any)
	if summary["confirmed"] != float64(1) || summary["totalFields"] != float64(2) {
		t.Errorf("summary = %v", summary)
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/wizard/claim/fields/confirmed-values", sess.Token, nil)
	values, _ := decodeResponse(t, recorder)["values"].(map[string]any)
	if values["policyDetails.policyNumber"] != "POL-123456" {
		t.Errorf("confirmed values = %v", values)
	}
}

func TestConfirmUnknownFieldIs404(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/claim/fields/confirm", sess.Token, map[string]any{
		"path": "no.such.field",
	})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestCompleteWizardCancelsReminderAndMaterializesClaim(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/wizard/progress", sess.Token, map[string]any{
		"wizardType":         "claim",
		"currentStep":        5,
		"totalSteps":         6,
		"progressPercentage": 83,
		"wizardData": map[string]any{
			"insuredDetails": map[string]any{"firstName": "Dana", "lastName": "Reyes"},
			"policyDetails":  map[string]any{"policyNumber": "POL-998"},
		},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("save status = %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/wizard/progress/claim/complete", sess.Token, map[string]any{})
	if recorder.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", recorder.Code, recorder.Body.String())
	}

	for _, task := range fs.tasks {
		if task.Status != store.TaskStatusCancelled {
			t.Errorf("reminder task %s status = %s", task.ID, task.Status)
		}
	}
	if len(fs.claims) != 1 {
		t.Fatalf("expected one materialized claim, got %d", len(fs.claims))
	}
	for _, claim := range fs.claims {
		if claim.InsuredName != "Dana Reyes" || claim.PolicyNumber != "POL-998" {
			t.Errorf("unexpected claim: %+v", claim)
		}
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/session/logout", sess.Token, map[string]any{
		"refreshToken": sess.RefreshToken,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("logout status = %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/tasks", sess.Token, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d", recorder.Code)
	}
}

func TestSessionRefreshRotation(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	recorder := doJSON(t, server, http.MethodPost, "/api/session/refresh", "", map[string]any{
		"refreshToken": sess.RefreshToken,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["token"] == "" || payload["refreshToken"] == sess.RefreshToken {
		t.Error("expected a rotated token pair")
	}

	// The old refresh token is single-use.
	recorder = doJSON(t, server, http.MethodPost, "/api/session/refresh", "", map[string]any{
		"refreshToken": sess.RefreshToken,
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh status = %d", recorder.Code)
	}
}

func TestClaimStatusUpdate(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	fs.claims["clm_1"] = store.Claim{ID: "clm_1", OrganizationID: user.OrganizationID, ClaimNumber: "CLM-1", Status: "open"}

	recorder := doJSON(t, server, http.MethodPost, "/api/claims/clm_1/status", sess.Token, map[string]any{"status": "settled"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	claim, _ := decodeResponse(t, recorder)["claim"].(map[string]any)
	if claim["status"] != "settled" {
		t.Errorf("claim status = %v", claim["status"])
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/claims/clm_1/status", sess.Token, map[string]any{"status": "bogus"})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bogus status = %d", recorder.Code)
	}
}

func TestClaimFromOtherOrganizationIsHidden(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	fs.claims["clm_other"] = store.Claim{ID: "clm_other", OrganizationID: "org_other", ClaimNumber: "CLM-9"}

	recorder := doJSON(t, server, http.MethodGet, "/api/claims/clm_other", sess.Token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestDispatchDueRemindersMarksTasks(t *testing.T) {
	fs := newFakeStore()
	_, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")

	fs.tasks["tsk_due"] = store.Task{
		ID:             "tsk_due",
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Status:         store.TaskStatusPending,
		TaskType:       store.TaskTypeWizardCompletion,
		DueDate:        time.Now().Add(-time.Hour),
		Metadata:       map[string]any{"wizard_type": "claim", "current_step": float64(3), "total_steps": float64(6)},
	}

	// SMTP is unconfigured in tests: no email goes out, but the task is
	// still marked so it does not come due again next tick.
	sent, err := service.DispatchDueReminders(context.Background(), nil)
	if err != nil {
		t.Fatalf("DispatchDueReminders: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d", sent)
	}
	if fs.tasks["tsk_due"].RemindedAt == nil {
		t.Error("task not marked reminded")
	}

	due, _ := fs.ListDueReminders(context.Background(), time.Now(), 10)
	if len(due) != 0 {
		t.Errorf("task still due after dispatch: %d", len(due))
	}
}

func TestUploadWithoutArchiveIs503(t *testing.T) {
	fs := newFakeStore()
	server, service := newTestServer(t, fs)
	user := seedUser(fs, "adjuster")
	sess := signIn(t, service, user.ID)

	body := &bytes.Buffer{}
	body.WriteString("--boundary\r\nContent-Disposition: form-data; name=\"file\"; filename=\"policy.pdf\"\r\nContent-Type: application/pdf\r\n\r\npdf-bytes\r\n--boundary--\r\n")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
}
