// Package export renders claim summaries to PDF via headless Chrome.
package export

import (
	"errors"
	"time"
)

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ClaimInfo holds the claim data a summary is rendered from.
type ClaimInfo struct {
	ID              string
	ClaimNumber     string
	InsuredName     string
	CarrierName     string
	PolicyNumber    string
	Status          string
	LossDate        *time.Time
	LossDescription string
	CreatedAt       time.Time
}

// FieldRow is one confirmed-field line in the summary appendix.
type FieldRow struct {
	Path        string
	Value       string
	Status      string
	Confidence  string
	ConfirmedBy string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
