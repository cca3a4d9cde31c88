// Package errors provides structured error handling for tagvault.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store errors (ledger, vector index, files)
//   - 3XX: Provider errors (embedding, suggestion service)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates ledger and vector store errors.
	CategoryStore Category = "STORE"
	// CategoryProvider indicates embedding or suggestion provider errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreOpen     = "ERR_201_STORE_OPEN"
	ErrCodeStoreCorrupt  = "ERR_202_STORE_CORRUPT"
	ErrCodeStorePersist  = "ERR_203_STORE_PERSIST"
	ErrCodeStoreLocked   = "ERR_204_STORE_LOCKED"
	ErrCodeNoteNotFound  = "ERR_205_NOTE_NOT_FOUND"
	ErrCodeNoteWrite     = "ERR_206_NOTE_WRITE"

	// Provider errors (300-399)
	ErrCodeEmbedderUnavailable = "ERR_301_EMBEDDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_302_EMBEDDING_FAILED"
	ErrCodeSuggestFailed       = "ERR_303_SUGGEST_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidTag        = "ERR_401_INVALID_TAG"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidInput      = "ERR_403_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Store corruption and lock contention abort the operation; provider
// failures degrade gracefully and are warnings.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt, ErrCodeStoreLocked, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeEmbeddingFailed, ErrCodeSuggestFailed:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether operations failing with this code
// may succeed on retry by the caller.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedderUnavailable, ErrCodeEmbeddingFailed, ErrCodeSuggestFailed, ErrCodeStoreLocked:
		return true
	default:
		return false
	}
}
