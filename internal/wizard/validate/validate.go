// Package validate decides whether a wizard step's accumulated data is
// complete enough to leave the step. Validation is pure: no I/O, no
// mutation of the passed-in data, safe to run on every keystroke.
package validate

import (
	"math"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type FieldError struct {
	Field      string   `json:"field"`
	FieldLabel string   `json:"fieldLabel"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	Section    string   `json:"section,omitempty"`
}

type StepResult struct {
	IsValid               bool         `json:"isValid"`
	Errors                []FieldError `json:"errors"`
	Warnings              []FieldError `json:"warnings"`
	MissingRequiredFields []FieldError `json:"missingRequiredFields"`
	CompletionPercentage  int          `json:"completionPercentage"`
}

// FieldStatus is the live per-field verdict used for inline indicators.
type FieldStatus struct {
	IsValid    bool   `json:"isValid"`
	Error      string `json:"error,omitempty"`
	IsRequired bool   `json:"isRequired"`
}

// ValidateStep runs the step's rule table against the full wizard data.
// A step with no rules is trivially valid and 100% complete.
func ValidateStep(stepID string, data map[string]any) StepResult {
	rules := stepRules[stepID]

	result := StepResult{
		Errors:                []FieldError{},
		Warnings:              []FieldError{},
		MissingRequiredFields: []FieldError{},
	}

	totalFields := len(rules)
	validFields := 0

	for _, fr := range rules {
		value := nestedValue(data, fr.Path)
		empty := isEmpty(value)

		if fr.Rule.Required && empty {
			fieldError := FieldError{
				Field:      fr.Path,
				FieldLabel: fr.Rule.Label,
				Message:    fr.Rule.Label + " is required",
				Severity:   SeverityError,
				Section:    fr.Rule.Section,
			}
			result.Errors = append(result.Errors, fieldError)
			result.MissingRequiredFields = append(result.MissingRequiredFields, fieldError)
			continue
		}

		if !empty {
			validFields++
			if fr.Rule.Validator != nil {
				if message := fr.Rule.Validator(value, data); message != "" {
					result.Errors = append(result.Errors, FieldError{
						Field:      fr.Path,
						FieldLabel: fr.Rule.Label,
						Message:    message,
						Severity:   SeverityError,
						Section:    fr.Rule.Section,
					})
					validFields--
				}
			}
		}
	}

	if totalFields > 0 {
		result.CompletionPercentage = int(math.Round(float64(validFields) / float64(totalFields) * 100))
	} else {
		result.CompletionPercentage = 100
	}
	result.IsValid = len(result.Errors) == 0 && len(result.MissingRequiredFields) == 0
	return result
}

// ValidateAllSteps evaluates every listed step against the same data.
func ValidateAllSteps(data map[string]any, stepIDs []string) map[string]StepResult {
	results := make(map[string]StepResult, len(stepIDs))
	for _, stepID := range stepIDs {
		results[stepID] = ValidateStep(stepID, data)
	}
	return results
}

// FieldValidationStatus checks a single field of a step. Unknown steps and
// fields are trivially valid.
func FieldValidationStatus(stepID, fieldPath string, data map[string]any) FieldStatus {
	var rule *Rule
	for _, fr := range stepRules[stepID] {
		if fr.Path == fieldPath {
			rule = &fr.Rule
			break
		}
	}
	if rule == nil {
		return FieldStatus{IsValid: true}
	}

	value := nestedValue(data, fieldPath)
	empty := isEmpty(value)

	if rule.Required && empty {
		return FieldStatus{Error: rule.Label + " is required", IsRequired: true}
	}
	if !empty && rule.Validator != nil {
		if message := rule.Validator(value, data); message != "" {
			return FieldStatus{Error: message, IsRequired: rule.Required}
		}
	}
	return FieldStatus{IsValid: true, IsRequired: rule.Required}
}

// RequiredFieldsForStep lists the paths that must be filled before the step
// may be left.
func RequiredFieldsForStep(stepID string) []string {
	var paths []string
	for _, fr := range stepRules[stepID] {
		if fr.Rule.Required {
			paths = append(paths, fr.Path)
		}
	}
	return paths
}

// StepSections returns the step's distinct section labels in rule order.
func StepSections(stepID string) []string {
	var sections []string
	seen := make(map[string]bool)
	for _, fr := range stepRules[stepID] {
		if fr.Rule.Section != "" && !seen[fr.Rule.Section] {
			seen[fr.Rule.Section] = true
			sections = append(sections, fr.Rule.Section)
		}
	}
	return sections
}

// StepIDs lists every step that carries a rule table.
func StepIDs() []string {
	return []string{"policy-upload", "client-details", "insurance-info", "claim-info", "referral", "contract"}
}

// nestedValue resolves a dotted path through nested maps; any missing level
// yields nil.
func nestedValue(data map[string]any, path string) any {
	var current any = data
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		value, ok := node[key]
		if !ok {
			return nil
		}
		current = value
	}
	return current
}

func isEmpty(value any) bool {
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
