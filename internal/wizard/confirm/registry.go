// Package confirm tracks provenance and confirmation status for wizard
// fields populated by automated document extraction, so that values a user
// has confirmed or edited are never silently overwritten by a later
// extraction pass.
package confirm

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Source string

const (
	SourceExtracted     Source = "extracted"
	SourceUserEntered   Source = "user_entered"
	SourceAISuggested   Source = "ai_suggested"
	SourceAutoPopulated Source = "auto_populated"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusModified  Status = "modified"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Field is one tracked wizard value. OriginalValue holds the value at first
// observation and never changes afterwards, whatever edits follow.
type Field struct {
	Value            any            `json:"value"`
	Source           Source         `json:"source"`
	Status           Status         `json:"status"`
	Confidence       Confidence     `json:"confidence"`
	OriginalValue    any            `json:"originalValue"`
	ConfirmedAt      *time.Time     `json:"confirmedAt,omitempty"`
	ConfirmedBy      string         `json:"confirmedBy,omitempty"`
	ValidationPassed bool           `json:"validationPassed"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Totals are the cached status counts, recomputed on every mutation.
type Totals struct {
	Total            int `json:"total"`
	Confirmed        int `json:"confirmed"`
	Pending          int `json:"pending"`
	Rejected         int `json:"rejected"`
	Modified         int `json:"modified"`
	HighConfidence   int `json:"highConfidence"`
	NeedingAttention int `json:"needingAttention"`
}

type Summary struct {
	TotalFields      int     `json:"totalFields"`
	Confirmed        int     `json:"confirmed"`
	Pending          int     `json:"pending"`
	Rejected         int     `json:"rejected"`
	Modified         int     `json:"modified"`
	HighConfidence   int     `json:"highConfidence"`
	NeedingAttention int     `json:"needingAttention"`
	CompletionRate   float64 `json:"completionRate"`
}

// ExtractionMetadata describes one extraction pass. When Confidence is set
// it overrides the per-value heuristic for every field in the pass.
type ExtractionMetadata struct {
	Method         string     `json:"method,omitempty"`
	SourceDocument string     `json:"sourceDocument,omitempty"`
	Confidence     Confidence `json:"confidence,omitempty"`
}

// Registry maps field path -> Field for one wizard session. It is
// constructed per session, passed by reference, and safe for concurrent use.
type Registry struct {
	mu          sync.Mutex
	fields      map[string]Field
	version     int64
	lastUpdated time.Time
	totals      Totals
	logger      *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		fields: make(map[string]Field),
		logger: logger,
	}
}

var (
	policyNumberPattern = regexp.MustCompile(`^[A-Z0-9-]{6,}$`)
	isoDatePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// classifyConfidence is a rough heuristic over the extracted value shape:
// long strings, policy-number-shaped tokens, and ISO dates rank high,
// everything else medium.
func classifyConfidence(value any) Confidence {
	s, ok := value.(string)
	if !ok {
		return ConfidenceMedium
	}
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 20 {
		return ConfidenceHigh
	}
	if policyNumberPattern.MatchString(trimmed) {
		return ConfidenceHigh
	}
	if isoDatePattern.MatchString(trimmed) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// InitializeWithExtractedData merges one extraction pass into the registry.
// Empty values are skipped. Fields whose status is confirmed or modified
// are protected and left untouched; pending and rejected fields take the
// new value but keep their original value and status.
func (r *Registry) InitializeWithExtractedData(extracted map[string]any, meta ExtractionMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, value := range extracted {
		if isEmptyValue(value) {
			continue
		}

		confidence := meta.Confidence
		if confidence == "" {
			confidence = classifyConfidence(value)
		}

		existing, ok := r.fields[path]
		if ok {
			if isProtected(existing) {
				r.logger.Printf("confirm: skipping protected field %q on extraction pass", path)
				continue
			}
			existing.Value = value
			existing.Source = SourceExtracted
			existing.Confidence = confidence
			existing.Metadata = extractionMeta(existing.Metadata, meta)
			r.fields[path] = existing
			continue
		}

		r.fields[path] = Field{
			Value:            value,
			Source:           SourceExtracted,
			Status:           StatusPending,
			Confidence:       confidence,
			OriginalValue:    value,
			ValidationPassed: true,
			Metadata:         extractionMeta(nil, meta),
		}
	}

	r.bump()
}

func extractionMeta(metadata map[string]any, meta ExtractionMetadata) map[string]any {
	if meta.Method == "" && meta.SourceDocument == "" {
		return metadata
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	if meta.Method != "" {
		metadata["extraction_method"] = meta.Method
	}
	if meta.SourceDocument != "" {
		metadata["source_document"] = meta.SourceDocument
	}
	return metadata
}

// SetField writes a value outside the confirm/reject/modify lifecycle, e.g.
// when a step component populates a field directly. Automated sources
// cannot overwrite a protected field.
func (r *Registry) SetField(path string, value any, source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.fields[path]
	if ok {
		if isProtected(existing) && source != SourceUserEntered {
			r.logger.Printf("confirm: refusing %s overwrite of protected field %q", source, path)
			return
		}
		existing.Value = value
		existing.Source = source
		if source == SourceUserEntered {
			existing.Confidence = ConfidenceHigh
		}
		r.fields[path] = existing
		r.bump()
		return
	}

	confidence := ConfidenceHigh
	if source != SourceUserEntered {
		confidence = classifyConfidence(value)
	}
	r.fields[path] = Field{
		Value:            value,
		Source:           source,
		Status:           StatusPending,
		Confidence:       confidence,
		OriginalValue:    value,
		ValidationPassed: true,
	}
	r.bump()
}

// ConfirmField marks the value as user-accepted. A non-nil finalValue
// overrides the stored value at the same time.
func (r *Registry) ConfirmField(path string, finalValue any, confirmedBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	field, ok := r.fields[path]
	if !ok {
		r.logger.Printf("confirm: ConfirmField on unknown path %q", path)
		return
	}
	if finalValue != nil {
		field.Value = finalValue
	}
	now := time.Now()
	field.Status = StatusConfirmed
	field.ConfirmedAt = &now
	field.ConfirmedBy = confirmedBy
	field.ValidationPassed = true
	r.fields[path] = field
	r.bump()
}

func (r *Registry) RejectField(path, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	field, ok := r.fields[path]
	if !ok {
		r.logger.Printf("confirm: RejectField on unknown path %q", path)
		return
	}
	field.Status = StatusRejected
	field.ValidationPassed = false
	if reason != "" {
		if field.Metadata == nil {
			field.Metadata = make(map[string]any)
		}
		field.Metadata["rejection_reason"] = reason
	}
	r.fields[path] = field
	r.bump()
}

// ModifyField records a direct user edit. OriginalValue keeps the value
// from first observation, not the value being replaced.
func (r *Registry) ModifyField(path string, value any, source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	field, ok := r.fields[path]
	if !ok {
		r.logger.Printf("confirm: ModifyField on unknown path %q", path)
		return
	}
	if source == "" {
		source = SourceUserEntered
	}
	now := time.Now()
	field.Value = value
	field.Source = source
	field.Status = StatusModified
	if source == SourceUserEntered {
		field.Confidence = ConfidenceHigh
	}
	field.ValidationPassed = true
	if field.Metadata == nil {
		field.Metadata = make(map[string]any)
	}
	field.Metadata["modified_at"] = now.UTC().Format(time.RFC3339)
	r.fields[path] = field
	r.bump()
}

func (r *Registry) GetField(path string) (Field, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[path]
	return field, ok
}

func (r *Registry) IsFieldConfirmed(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[path]
	return ok && field.Status == StatusConfirmed
}

// IsFieldProtected reports whether automated population must leave the
// field alone.
func (r *Registry) IsFieldProtected(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[path]
	return ok && isProtected(field)
}

func isProtected(field Field) bool {
	return field.Status == StatusConfirmed || field.Status == StatusModified
}

func (r *Registry) FieldsByStatus(status Status) map[string]Field {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[string]Field)
	for path, field := range r.fields {
		if field.Status == status {
			result[path] = field
		}
	}
	return result
}

// ConfirmedValues returns the merged confirmed-or-modified value map for
// injection back into wizard state.
func (r *Registry) ConfirmedValues() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[string]any)
	for path, field := range r.fields {
		if isProtected(field) {
			result[path] = field.Value
		}
	}
	return result
}

// FieldsNeedingAttention lists paths a reviewer should look at: rejected
// fields and pending low-confidence ones.
func (r *Registry) FieldsNeedingAttention() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var paths []string
	for path, field := range r.fields {
		if needsAttention(field) {
			paths = append(paths, path)
		}
	}
	return paths
}

func needsAttention(field Field) bool {
	if field.Status == StatusRejected {
		return true
	}
	return field.Status == StatusPending && field.Confidence == ConfidenceLow
}

// BulkConfirm confirms every known path in the list and returns how many
// fields it touched. Unknown paths are skipped.
func (r *Registry) BulkConfirm(paths []string, confirmedBy string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	confirmed := 0
	for _, path := range paths {
		field, ok := r.fields[path]
		if !ok {
			r.logger.Printf("confirm: BulkConfirm skipping unknown path %q", path)
			continue
		}
		field.Status = StatusConfirmed
		field.ConfirmedAt = &now
		field.ConfirmedBy = confirmedBy
		field.ValidationPassed = true
		r.fields[path] = field
		confirmed++
	}
	if confirmed > 0 {
		r.bump()
	}
	return confirmed
}

func (r *Registry) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	rate := 0.0
	if r.totals.Total > 0 {
		rate = float64(r.totals.Confirmed+r.totals.Modified) / float64(r.totals.Total)
	}
	return Summary{
		TotalFields:      r.totals.Total,
		Confirmed:        r.totals.Confirmed,
		Pending:          r.totals.Pending,
		Rejected:         r.totals.Rejected,
		Modified:         r.totals.Modified,
		HighConfidence:   r.totals.HighConfidence,
		NeedingAttention: r.totals.NeedingAttention,
		CompletionRate:   rate,
	}
}

func (r *Registry) Version() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

type exportedState struct {
	Fields      map[string]Field `json:"fields"`
	LastUpdated time.Time        `json:"lastUpdated"`
	Version     int64            `json:"version"`
	Totals      Totals           `json:"totals"`
}

// ExportState snapshots the registry as an opaque blob suitable for
// embedding inside a persisted wizard_data document.
func (r *Registry) ExportState() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := exportedState{
		Fields:      r.fields,
		LastUpdated: r.lastUpdated,
		Version:     r.version,
		Totals:      r.totals,
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("export registry state: %w", err)
	}
	return data, nil
}

// ImportState replaces the registry contents with a previously exported
// snapshot.
func (r *Registry) ImportState(data []byte) error {
	var state exportedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("import registry state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if state.Fields == nil {
		state.Fields = make(map[string]Field)
	}
	r.fields = state.Fields
	r.version = state.Version
	r.lastUpdated = state.LastUpdated
	r.recomputeTotals()
	return nil
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = make(map[string]Field)
	r.version = 0
	r.lastUpdated = time.Time{}
	r.totals = Totals{}
}

// bump records a mutation: version tick, timestamp, totals recount.
// Callers hold the lock.
func (r *Registry) bump() {
	r.version++
	r.lastUpdated = time.Now()
	r.recomputeTotals()
}

func (r *Registry) recomputeTotals() {
	totals := Totals{Total: len(r.fields)}
	for _, field := range r.fields {
		switch field.Status {
		case StatusConfirmed:
			totals.Confirmed++
		case StatusPending:
			totals.Pending++
		case StatusRejected:
			totals.Rejected++
		case StatusModified:
			totals.Modified++
		}
		if field.Confidence == ConfidenceHigh {
			totals.HighConfidence++
		}
		if needsAttention(field) {
			totals.NeedingAttention++
		}
	}
	r.totals = totals
}
