package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"venuepermits/internal/apperrors"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqExclusionViolation  = "23P01"
)

type scanner interface {
	Scan(dest ...any) error
}

// withTx runs fn in a transaction. Any error from fn rolls back and is
// returned after translation.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return translate(err, "transaction")
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "commit")
	}
	return nil
}

// translate maps driver errors to domain errors. Domain errors pass
// through unchanged.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		meta := map[string]string{}
		if pqErr.Constraint != "" {
			meta["constraint"] = pqErr.Constraint
		}
		switch pqErr.Code {
		case pqUniqueViolation:
			return &apperrors.Error{Code: apperrors.CodeConflict, Message: "record already exists", Metadata: meta, Cause: err}
		case pqForeignKeyViolation:
			return &apperrors.Error{Code: apperrors.CodeNotFound, Message: "referenced record not found", Metadata: meta, Cause: err}
		case pqExclusionViolation:
			return &apperrors.Error{Code: apperrors.CodeConflict, Message: "venue is already booked for an overlapping period", Metadata: meta, Cause: err}
		case pqCheckViolation:
			return &apperrors.Error{Code: apperrors.CodeInvalid, Message: "value violates a constraint", Metadata: meta, Cause: err}
		}
	}
	return apperrors.Wrap(apperrors.CodeInternal, op, err)
}

func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
