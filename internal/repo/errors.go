package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — операция невозможна в текущем состоянии
	// (например, claim события не в статусе PENDING).
	ErrInvalidState = errors.New("invalid state")
)

// pgUniqueViolation — код SQLSTATE для нарушения уникальности.
const pgUniqueViolation = "23505"

// isUniqueViolation проверяет, является ли ошибка конфликтом уникальности.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
