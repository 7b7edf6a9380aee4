package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
)

const uniqueViolation = "23505"

// MapUniqueViolation turns a unique-constraint error into a Duplicate
// AppError for entity; any other error is returned as is.
func MapUniqueViolation(err error, entity, field, value string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.NewDuplicate(entity, field, value).WithCause(err)
	}
	return err
}
