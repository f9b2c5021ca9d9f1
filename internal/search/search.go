// Package search provides full-text search over claims and tasks, backed by
// Meilisearch with a PostgreSQL FTS fallback.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultClaim ResultType = "claim"
	ResultTask  ResultType = "task"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type           ResultType `json:"type"`
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Snippet        string     `json:"snippet"`
	OrganizationID string     `json:"organizationId"`
	Status         string     `json:"status,omitempty"`
}

// Query describes a search request. Every query is organization-scoped.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	OrganizationID string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ClaimRecord is the data we index for a claim.
type ClaimRecord struct {
	ID              string `json:"id"`
	ClaimNumber     string `json:"claimNumber"`
	InsuredName     string `json:"insuredName"`
	CarrierName     string `json:"carrierName"`
	LossDescription string `json:"lossDescription"`
	OrganizationID  string `json:"organizationId"`
	Status          string `json:"status"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	OrganizationID string `json:"organizationId"`
	Status         string `json:"status"`
	TaskType       string `json:"taskType"`
}
