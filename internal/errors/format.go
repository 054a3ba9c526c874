package errors

import (
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	we, ok := err.(*WeftError)
	if !ok {
		// Wrap standard error
		we = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", we.Message))

	if len(we.Details) > 0 {
		keys := make([]string, 0, len(we.Details))
		for k := range we.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, we.Details[k]))
		}
	}

	sb.WriteString(fmt.Sprintf("[%s]", we.Code))
	return sb.String()
}

// FormatForLog returns a single-line representation for structured logs.
// The cause chain is flattened into the message.
func FormatForLog(err error) string {
	if err == nil {
		return ""
	}

	we, ok := err.(*WeftError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString(we.Error())
	if we.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(we.Cause.Error())
	}
	return sb.String()
}
