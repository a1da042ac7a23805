package repository

import (
	"context"
	"database/sql"
	"errors"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type permitRepository struct {
	db *sql.DB
}

func NewPermitRepository(db *sql.DB) interfaces.PermitRepository {
	return &permitRepository{db: db}
}

const selectPermit = `
	SELECT id, booking_id, applicant_id, type, details, status, authority_notes, created_at, updated_at
	FROM permits
`

func scanPermit(s scanner) (*models.Permit, error) {
	var p models.Permit
	err := s.Scan(&p.ID, &p.BookingID, &p.ApplicantID, &p.Type, &p.Details, &p.Status, &p.AuthorityNotes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create holds FOR SHARE on the booking so a concurrent status change
// cannot slip between guard and insert.
func (r *permitRepository) Create(ctx context.Context, permit *models.Permit, guard interfaces.BookingGuard) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		b, err := scanBooking(tx.QueryRowContext(ctx, selectBooking+` WHERE b.id = $1 FOR SHARE OF b`, permit.BookingID))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("booking", permit.BookingID)
		}
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(b); err != nil {
				return err
			}
		}

		permit.Status = models.StatusPending
		query := `
			INSERT INTO permits (id, booking_id, applicant_id, type, details, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		return tx.QueryRowContext(ctx, query,
			permit.ID, permit.BookingID, permit.ApplicantID, permit.Type, permit.Details, permit.Status,
		).Scan(&permit.CreatedAt, &permit.UpdatedAt)
	})
}

func (r *permitRepository) GetByID(ctx context.Context, id string) (*models.Permit, error) {
	p, err := scanPermit(r.db.QueryRowContext(ctx, selectPermit+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permit", id)
	}
	if err != nil {
		return nil, translate(err, "get permit")
	}
	return p, nil
}

func (r *permitRepository) List(ctx context.Context, applicantID string) ([]models.Permit, error) {
	query := selectPermit
	var args []any
	if applicantID != "" {
		query += ` WHERE applicant_id = $1`
		args = append(args, applicantID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list permits")
	}
	defer rows.Close()

	permits := []models.Permit{}
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, translate(err, "list permits")
		}
		permits = append(permits, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list permits")
	}
	return permits, nil
}

func (r *permitRepository) UpdateStatus(ctx context.Context, id string, next models.Status, notes string, guard interfaces.PermitGuard) (*models.Permit, error) {
	var out *models.Permit
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		p, err := r.lock(ctx, tx, id, "FOR UPDATE", guard)
		if err != nil {
			return err
		}
		if !p.Status.CanTransition(next) {
			return notPending("permit", id, p.Status)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE permits SET status = $1, authority_notes = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4
			RETURNING updated_at
		`, next, notes, id, models.StatusPending).Scan(&p.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return notPending("permit", id, p.Status)
		}
		if err != nil {
			return err
		}
		p.Status = next
		p.AuthorityNotes = notes
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *permitRepository) Delete(ctx context.Context, id string, guard interfaces.PermitGuard) ([]string, error) {
	var keys []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := r.lock(ctx, tx, id, "FOR UPDATE", guard); err != nil {
			return err
		}
		var err error
		keys, err = queryStrings(ctx, tx, `SELECT object_key FROM permit_documents WHERE permit_id = $1 ORDER BY object_key`, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM permit_documents WHERE permit_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM permits WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *permitRepository) AddDocument(ctx context.Context, doc *models.PermitDocument, guard interfaces.PermitGuard) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := r.lock(ctx, tx, doc.PermitID, "FOR SHARE", guard); err != nil {
			return err
		}
		query := `
			INSERT INTO permit_documents (id, permit_id, file_name, content_type, size_bytes, object_key, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING uploaded_at
		`
		return tx.QueryRowContext(ctx, query,
			doc.ID, doc.PermitID, doc.FileName, doc.ContentType, doc.SizeBytes, doc.ObjectKey, doc.URL,
		).Scan(&doc.UploadedAt)
	})
}

func (r *permitRepository) ListDocuments(ctx context.Context, permitID string) ([]models.PermitDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, permit_id, file_name, content_type, size_bytes, object_key, url, uploaded_at
		FROM permit_documents
		WHERE permit_id = $1
		ORDER BY uploaded_at, id
	`, permitID)
	if err != nil {
		return nil, translate(err, "list permit documents")
	}
	defer rows.Close()

	docs := []models.PermitDocument{}
	for rows.Next() {
		var d models.PermitDocument
		if err := rows.Scan(&d.ID, &d.PermitID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.ObjectKey, &d.URL, &d.UploadedAt); err != nil {
			return nil, translate(err, "list permit documents")
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list permit documents")
	}
	return docs, nil
}

// lock loads the permit with the given row lock clause and runs guard.
func (r *permitRepository) lock(ctx context.Context, tx *sql.Tx, id, clause string, guard interfaces.PermitGuard) (*models.Permit, error) {
	p, err := scanPermit(tx.QueryRowContext(ctx, selectPermit+` WHERE id = $1 `+clause, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permit", id)
	}
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
