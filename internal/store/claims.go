package store

import (
	"context"
	"database/sql"
	"fmt"
)

const claimColumns = `id, organization_id, claim_number, insured_name, carrier_name, policy_number,
	status, loss_date, loss_description, created_by, created_at, updated_at`

func (s *Store) InsertClaim(ctx context.Context, claim Claim) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (
			id, organization_id, claim_number, insured_name, carrier_name, policy_number,
			status, loss_date, loss_description, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, claim.ID, claim.OrganizationID, claim.ClaimNumber, claim.InsuredName, claim.CarrierName,
		claim.PolicyNumber, claim.Status, claim.LossDate, claim.LossDescription, claim.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, id, organizationID string) (Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scanClaim(row)
}

func (s *Store) ListClaims(ctx context.Context, organizationID string) ([]Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+claimColumns+` FROM claims WHERE organization_id = $1 ORDER BY created_at DESC
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (s *Store) UpdateClaimStatus(ctx context.Context, id, organizationID, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE claims SET status = $3, updated_at = NOW() WHERE id = $1 AND organization_id = $2
	`, id, organizationID, status)
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanClaim(row rowScanner) (Claim, error) {
	var claim Claim
	err := row.Scan(
		&claim.ID, &claim.OrganizationID, &claim.ClaimNumber, &claim.InsuredName,
		&claim.CarrierName, &claim.PolicyNumber, &claim.Status, &claim.LossDate,
		&claim.LossDescription, &claim.CreatedBy, &claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		return Claim{}, err
	}
	return claim, nil
}
