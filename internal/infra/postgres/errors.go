package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"tenant-quiz-service/internal/domain"
)

const uniqueViolation = "23505"

// pgError is satisfied by pgdriver.Error.
type pgError interface {
	Field(k byte) string
}

func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr pgError
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affectedOrNotFound(op string, res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return 0, domain.ErrNotFound
	}
	return n, nil
}
