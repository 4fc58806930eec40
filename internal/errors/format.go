package errors

import (
	"fmt"
	"sort"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, the details and the underlying cause are included.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	ie, ok := As(err)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(ie.Message)
	sb.WriteString("\n")

	if ie.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(ie.Suggestion)
		sb.WriteString("\n")
	}

	if debug {
		for _, k := range sortedKeys(ie.Details) {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, ie.Details[k]))
		}
		if ie.Cause != nil && ie.Cause.Error() != ie.Message {
			sb.WriteString(fmt.Sprintf("  cause: %v\n", ie.Cause))
		}
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", ie.Code))
	return sb.String()
}

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ie, ok := As(err)
	if !ok {
		ie = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ie.Message))
	if ie.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ie.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ie.Code))
	return sb.String()
}

// FormatForLog flattens an error into slog key-value pairs.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	ie, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", ie.Code,
		"error", ie.Message,
		"category", string(ie.Category),
		"severity", string(ie.Severity),
	}
	if ie.Cause != nil && ie.Cause.Error() != ie.Message {
		attrs = append(attrs, "cause", ie.Cause.Error())
	}
	for _, k := range sortedKeys(ie.Details) {
		attrs = append(attrs, "detail_"+k, ie.Details[k])
	}
	return attrs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
