package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"komunitas/pendataan/internal/model"
)

var uniqueConstraints = map[string]error{
	"idx_submissions_nik":      model.ErrDuplicateNIK,
	"idx_submissions_nomor_kk": model.ErrDuplicateKK,
	"idx_submissions_user_id":  model.ErrAccountLinked,
	"idx_posts_slug":           model.ErrDuplicateSlug,
	"idx_accounts_email":       model.ErrDuplicateEmail,
}

// mapError converts driver errors into store errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if mapped, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
				return mapped
			}
		case "23503":
			// the referenced account does not exist
			return model.ErrNotFound
		}
	}
	return err
}
