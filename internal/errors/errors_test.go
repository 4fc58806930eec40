package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping with IndexError
	ie := New(ErrCodeFilePermission, "cannot read corpus", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, ie)
	assert.Equal(t, originalErr, errors.Unwrap(ie))
	assert.True(t, errors.Is(ie, originalErr))
}

func TestIndexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "shard error",
			code:     ErrCodeInvalidShard,
			message:  "shard index 7 out of range",
			expected: "[ERR_105_INVALID_SHARD] shard index 7 out of range",
		},
		{
			name:     "task mismatch",
			code:     ErrCodeTaskCountMismatch,
			message:  "2 of 3 partitions completed",
			expected: "[ERR_506_TASK_COUNT_MISMATCH] 2 of 3 partitions completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestIndexError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeInvalidShard, "shard 7 of 4", nil)
	err2 := New(ErrCodeInvalidShard, "shard -1 of 4", nil)
	assert.True(t, errors.Is(err1, err2))

	err3 := New(ErrCodeConfigNotFound, "config not found", nil)
	assert.False(t, errors.Is(err1, err3))
}

func TestIndexError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeInvalidCollectionPath, "corpus root missing", nil).
		WithDetail("path", "/data/corpus").
		WithSuggestion("Check --input")

	assert.Equal(t, "/data/corpus", err.Details["path"])
	assert.Equal(t, "Check --input", err.Suggestion)
}

func TestIndexError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeUnknownCollection, CategoryConfig},
		{ErrCodeInvalidShard, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeIndexLocked, CategoryIO},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeInvalidCollectionPath, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeTaskCountMismatch, CategoryInternal},
		{"BOGUS", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestIsFatal_StartupAndAccountingCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"invalid shard", New(ErrCodeInvalidShard, "bad shard", nil), true},
		{"unknown collection", New(ErrCodeUnknownCollection, "nope", nil), true},
		{"unknown generator", New(ErrCodeUnknownGenerator, "nope", nil), true},
		{"bad corpus root", New(ErrCodeInvalidCollectionPath, "missing", nil), true},
		{"task mismatch", New(ErrCodeTaskCountMismatch, "2 of 3", nil), true},
		{"index locked", New(ErrCodeIndexLocked, "busy", nil), true},
		{"file not found", New(ErrCodeFileNotFound, "not found", nil), false},
		{"wrapped fatal", fmt.Errorf("run: %w", New(ErrCodeInvalidShard, "bad", nil)), true},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestGetCode_FollowsWrapChain(t *testing.T) {
	inner := New(ErrCodeUnknownGenerator, "unknown generator \"x\"", nil)
	wrapped := fmt.Errorf("startup: %w", inner)

	assert.Equal(t, ErrCodeUnknownGenerator, GetCode(wrapped))
	assert.Equal(t, CategoryConfig, GetCategory(wrapped))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	ie := Wrap(ErrCodeIndexFailed, errors.New("disk gone"))
	require.NotNil(t, ie)
	assert.Equal(t, "disk gone", ie.Message)
	assert.Equal(t, SeverityFatal, ie.Severity)
}
