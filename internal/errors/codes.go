// Package errors provides structured error handling for corpusidx.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, index directory)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//
// Record-level and partition-level failures are never surfaced through this
// package; they are tallied by the indexing pipeline. An *IndexError that
// reaches the caller always ends the run.
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
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
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound    = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_102_CONFIG_INVALID"
	ErrCodeUnknownCollection = "ERR_103_UNKNOWN_COLLECTION"
	ErrCodeUnknownGenerator  = "ERR_104_UNKNOWN_GENERATOR"
	ErrCodeInvalidShard      = "ERR_105_INVALID_SHARD"

	// IO errors (200-299)
	ErrCodeFileNotFound        = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission      = "ERR_202_FILE_PERMISSION"
	ErrCodeIndexLocked         = "ERR_207_INDEX_LOCKED"
	ErrCodeWhitelistUnreadable = "ERR_208_WHITELIST_UNREADABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput          = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidCollectionPath = "ERR_407_INVALID_COLLECTION_PATH"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeIndexFailed       = "ERR_505_INDEX_FAILED"
	ErrCodeTaskCountMismatch = "ERR_506_TASK_COUNT_MISMATCH"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Every startup check and the post-run task accounting check are fatal.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid,
		ErrCodeUnknownCollection,
		ErrCodeUnknownGenerator,
		ErrCodeInvalidShard,
		ErrCodeIndexLocked,
		ErrCodeWhitelistUnreadable,
		ErrCodeInvalidCollectionPath,
		ErrCodeIndexFailed,
		ErrCodeTaskCountMismatch:
		return SeverityFatal
	}
	return SeverityError
}
