package store

import (
	"context"
	"fmt"
)

func (s *Store) InsertIntakeDocument(ctx context.Context, doc IntakeDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_documents (id, organization_id, user_id, wizard_type, file_name, object_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, doc.ID, doc.OrganizationID, doc.UserID, doc.WizardType, doc.FileName, doc.ObjectKey, doc.ContentType, doc.SizeBytes)
	if err != nil {
		return fmt.Errorf("insert intake document: %w", err)
	}
	return nil
}

func (s *Store) GetIntakeDocument(ctx context.Context, id, organizationID string) (IntakeDocument, error) {
	var doc IntakeDocument
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, wizard_type, file_name, object_key, content_type, size_bytes, uploaded_at
		FROM intake_documents
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID).Scan(
		&doc.ID, &doc.OrganizationID, &doc.UserID, &doc.WizardType, &doc.FileName,
		&doc.ObjectKey, &doc.ContentType, &doc.SizeBytes, &doc.UploadedAt,
	)
	if err != nil {
		return IntakeDocument{}, err
	}
	return doc, nil
}

func (s *Store) ListIntakeDocuments(ctx context.Context, organizationID, userID string) ([]IntakeDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, user_id, wizard_type, file_name, object_key, content_type, size_bytes, uploaded_at
		FROM intake_documents
		WHERE organization_id = $1 AND user_id = $2
		ORDER BY uploaded_at DESC
	`, organizationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list intake documents: %w", err)
	}
	defer rows.Close()

	var docs []IntakeDocument
	for rows.Next() {
		var doc IntakeDocument
		if err := rows.Scan(
			&doc.ID, &doc.OrganizationID, &doc.UserID, &doc.WizardType, &doc.FileName,
			&doc.ObjectKey, &doc.ContentType, &doc.SizeBytes, &doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan intake document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
