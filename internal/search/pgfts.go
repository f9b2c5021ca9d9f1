package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across claims and tasks using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.OrganizationID}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultClaim {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'claim'::text AS type, c.id,
				c.claim_number || ' — ' || c.insured_name AS title,
				ts_headline('english', coalesce(c.loss_description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				c.organization_id, c.status,
				ts_rank(c.search_vector, %s) AS rank
			FROM claims c
			WHERE c.search_vector @@ %s AND c.organization_id = $2`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultTask {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'task'::text AS type, t.id, t.title,
				ts_headline('english', coalesce(t.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.organization_id, t.status,
				ts_rank(t.search_vector, %s) AS rank
			FROM tasks t
			WHERE t.search_vector @@ %s AND t.organization_id = $2`, tsQuery, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, organization_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.OrganizationID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ClaimRecord, []TaskRecord, error) {
	claimRows, err := p.db.QueryContext(ctx, `
		SELECT id, claim_number, insured_name, carrier_name, loss_description, organization_id, status
		FROM claims
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load claims: %w", err)
	}
	defer claimRows.Close()

	claims := make([]ClaimRecord, 0)
	for claimRows.Next() {
		var c ClaimRecord
		if err := claimRows.Scan(&c.ID, &c.ClaimNumber, &c.InsuredName, &c.CarrierName, &c.LossDescription, &c.OrganizationID, &c.Status); err != nil {
			return nil, nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := claimRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate claims: %w", err)
	}

	taskRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, organization_id, status, task_type
		FROM tasks
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	defer taskRows.Close()

	tasks := make([]TaskRecord, 0)
	for taskRows.Next() {
		var t TaskRecord
		if err := taskRows.Scan(&t.ID, &t.Title, &t.Description, &t.OrganizationID, &t.Status, &t.TaskType); err != nil {
			return nil, nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := taskRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return claims, tasks, nil
}
