package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
)

// isUniqueViolation recognizes unique-index failures from every supported driver, with or
// without gorm's error translation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}

// lookupError maps a First() failure onto a not-found code, anything else onto an internal error.
func lookupError(err error, code apperrors.Code, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(code, resource, id)
	}
	return apperrors.Internal("load "+resource, err)
}
