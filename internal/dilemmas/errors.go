package dilemmas

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDilemmaNotFound = errors.New("dilemma not found")
	ErrNoOptions       = errors.New("dilemma has no options")
	ErrInvalidOption   = errors.New("option does not belong to dilemma")
	ErrInvalidScore    = errors.New("scores must be between 0 and 100")
	ErrConflict        = errors.New("conflicting write")
)

// Postgres SQLSTATE codes we map to domain errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// classifyPgError maps driver errors onto the sentinel errors above and keeps
// the original for context.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrDilemmaNotFound, pgErr.Detail)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}

// StatusFor maps an error returned by this package to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrDilemmaNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidOption), errors.Is(err, ErrInvalidScore):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
