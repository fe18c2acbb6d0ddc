// Package errors provides structured error handling for amandocs.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
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
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes. The first digit selects the category.
const (
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileTooLarge = "ERR_204_FILE_TOO_LARGE"
	ErrCodeCorruptIndex = "ERR_205_CORRUPT_INDEX"
	ErrCodeStorage      = "ERR_207_STORAGE_FAILURE"
	ErrCodeLockIO       = "ERR_208_LOCK_IO"
	ErrCodeBuildRunning = "ERR_209_BUILD_RUNNING"

	ErrCodeNetworkTimeout = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeEmbeddingAPI   = "ERR_303_EMBEDDING_API"
	ErrCodeFetchFailed    = "ERR_304_FETCH_FAILED"
	ErrCodeListFailed     = "ERR_305_LIST_FAILED"

	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeQueryTooLong      = "ERR_405_QUERY_TOO_LONG"
	ErrCodeInvalidPath       = "ERR_406_INVALID_PATH"
	ErrCodeInvalidRecord     = "ERR_407_INVALID_RECORD"

	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeExtraction      = "ERR_506_EXTRACTION_FAILED"
)

// categoryFromCode maps ERR_1xx..ERR_4xx to their categories; anything
// else is internal.
func categoryFromCode(code string) Category {
	if len(code) < 5 || code[:4] != "ERR_" {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode: a broken index is fatal, transient remote failures are
// warnings, the rest are plain errors.
func severityFromCode(code string) Severity {
	switch {
	case code == ErrCodeCorruptIndex || code == ErrCodeStorage:
		return SeverityFatal
	case isRetryableCode(code):
		return SeverityWarning
	default:
		return SeverityError
	}
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeEmbeddingAPI, ErrCodeFetchFailed, ErrCodeListFailed:
		return true
	}
	return false
}
