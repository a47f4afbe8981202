package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/movementcontrol/internal/domain"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// mapError converts driver errors into domain errors for entity/key.
func mapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFound(entity, key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return &domain.ConstraintViolationError{Entity: entity, Reason: foreignKeyReason(pgErr)}
		case pgUniqueViolation:
			verr := domain.NewValidationError()
			verr.Add(uniqueField(pgErr), "already exists")
			return verr
		}
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func foreignKeyReason(pgErr *pgconn.PgError) string {
	if pgErr.TableName != "" && strings.Contains(pgErr.Message, "update or delete") {
		return fmt.Sprintf("still referenced by %s", strings.ReplaceAll(pgErr.TableName, "_", " "))
	}
	if pgErr.ConstraintName != "" {
		return fmt.Sprintf("violates %s", pgErr.ConstraintName)
	}
	return pgErr.Message
}

// uniqueField guesses the offending column from constraint names such as
// "facilities_slug_key" or "users_username_lower_idx".
func uniqueField(pgErr *pgconn.PgError) string {
	name := strings.TrimPrefix(pgErr.ConstraintName, pgErr.TableName+"_")
	for _, suffix := range []string{"_lower_idx", "_key", "_idx"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if name == "" {
		return "value"
	}
	return name
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
