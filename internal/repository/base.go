// Package repository provides GORM-backed persistence for the domain models.
package repository

import (
	"errors"
	"math"
	"strings"

	"openobservatory/internal/database"
	"openobservatory/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// isUniqueConstraintError recognizes unique violations from postgres and,
// by message, from the sqlite driver used in tests.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, uniqueViolationCode)
}

// optional converts a single-row lookup into the repository convention:
// (nil, nil) when the row is missing, an internal AppError on failure.
func optional[T any](row *T, err error) (*T, error) {
	switch {
	case err == nil:
		return row, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, models.NewInternalError(err)
	}
}

// writeError maps a failed insert or update, reporting unique violations
// as duplicate.
func writeError(err, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return duplicate
	default:
		return models.NewInternalError(err)
	}
}

// offsetFor saturates instead of wrapping, so an absurd page reads past
// the end and comes back empty.
func offsetFor(page, perPage int) int {
	if page <= 0 || perPage <= 0 {
		return 0
	}
	if page > math.MaxInt/perPage {
		return math.MaxInt
	}
	return page * perPage
}
