package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/randomization-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrValidationFailed = errors.New("validation failed")

	// Randomization specific errors. Unknown strategies and templates are
	// downgraded to safe defaults rather than surfaced, so these exist for
	// logging and for callers that inspect wrapped causes.
	ErrUnknownStrategy     = errors.New("unknown randomization strategy")
	ErrUnknownTemplate     = errors.New("unknown template pattern")
	ErrBeneficiaryRequired = errors.New("beneficiary id required for adaptive strategy")

	// Tracker specific errors. Wraps every tracker write that fails against
	// the cache backend; advisory reads never produce it.
	ErrCacheUnavailable = errors.New("cache backend unavailable")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsCacheUnavailable checks if error represents a cache backend failure
func IsCacheUnavailable(err error) bool {
	return errors.Is(err, ErrCacheUnavailable)
}
