// Package core provides the business logic for spreadsheet lookup merges.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
// Errors related to the uploaded workbooks:
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Remove unused sheets or rows and upload again
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unreadable workbook: The file could not be read as a spreadsheet
//	          Action: Upload an .xlsx, .xlsm or .xls file saved by Excel
//	          Patterns: "unreadable workbook", "unsupported format"
//
//	FILE004 - No file: A file was not selected
//	          Action: Select both the primary and the reference file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The workbook has no data rows
//	          Action: Make sure the first row is a header followed by data
//	          Patterns: "empty file"
//
// # Selection Errors (SEL001-SEL099)
//
// Errors related to the key and result column choices. SEL001 is a warning:
// nothing went wrong, the user just has not chosen anything to copy yet.
//
//	SEL001 - No result columns: Select at least one column to copy
//	         Action: Pick one or more result columns from the reference file
//	         Patterns: "no result columns selected"
//
//	SEL002 - Key column not found: The chosen key column is not in the file
//	         Action: Pick the key columns again after re-uploading
//	         Patterns: "key column not found"
//
//	SEL003 - Invalid result column: A result column cannot be used
//	         Action: Choose columns of the reference file other than its key
//	         Patterns: "invalid result column"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many merges in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent merges"
//
//	RUN002 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	RUN003 - Request timeout: The merge took too long
//	         Action: Try smaller files
//	         Patterns: "context deadline exceeded"
//
// # History Errors (HIS001-HIS099)
//
//	HIS001 - History disabled: Run history is not configured
//	         Action: Set DATABASE_URL to enable run history
//	         Patterns: "history disabled"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Matching
//
// MapError first walks the error chain with errors.Is against the known
// sentinels, in table order. Only errors that wrap none of them fall back to
// case-insensitive substring patterns on the message. File and column names
// are part of messages, so a sentinel always wins over text.
package core

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/sheetjoin/internal/sheet"
)

// Message levels. A warning asks the user to change their input; an
// error means the request failed.
const (
	LevelWarning = "warning"
	LevelError   = "error"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrRateLimited is returned when a client exceeds its request rate.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Level   string // LevelWarning or LevelError
	Detail  string // Technical cause, set only for known user-facing errors
}

var (
	msgNoResultColumns = UserMessage{
		Message: "Select at least one result column to copy",
		Action:  "Pick one or more result columns from the reference file",
		Code:    "SEL001",
		Level:   LevelWarning,
	}
	msgKeyColumnNotFound = UserMessage{
		Message: "The chosen key column is not in the file",
		Action:  "Pick the key columns again after re-uploading",
		Code:    "SEL002",
		Level:   LevelError,
	}
	msgInvalidResultColumn = UserMessage{
		Message: "A selected result column cannot be used",
		Action:  "Choose columns of the reference file other than its key",
		Code:    "SEL003",
		Level:   LevelError,
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Remove unused sheets or rows and upload again",
		Code:    "FILE001",
		Level:   LevelError,
	}
	msgUnreadable = UserMessage{
		Message: "Unable to read the file",
		Action:  "Upload an .xlsx, .xlsm or .xls file saved by Excel",
		Code:    "FILE002",
		Level:   LevelError,
	}
	msgNoFile = UserMessage{
		Message: "A file was not selected",
		Action:  "Select both the primary and the reference file",
		Code:    "FILE004",
		Level:   LevelError,
	}
	msgEmptyFile = UserMessage{
		Message: "The workbook has no data rows",
		Action:  "Make sure the first row is a header followed by data",
		Code:    "FILE005",
		Level:   LevelError,
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other merges",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
		Level:   LevelError,
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "RUN002",
		Level:   LevelError,
	}
	msgTimeout = UserMessage{
		Message: "The merge took too long",
		Action:  "Try smaller files",
		Code:    "RUN003",
		Level:   LevelError,
	}
	msgHistoryDisabled = UserMessage{
		Message: "Run history is not enabled",
		Action:  "Set DATABASE_URL to enable run history",
		Code:    "HIS001",
		Level:   LevelError,
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
		Level:   LevelError,
	}
)

// errorSentinel maps an error in the chain to its user message.
type errorSentinel struct {
	target error
	msg    UserMessage
}

// errorSentinels is checked first. The parse failure sentinels come before
// the empty-file one: a load error wraps exactly one of them.
var errorSentinels = []errorSentinel{
	{ErrNoResultColumns, msgNoResultColumns},
	{ErrKeyColumnNotFound, msgKeyColumnNotFound},
	{ErrInvalidResultColumn, msgInvalidResultColumn},
	{ErrFileTooLarge, msgFileTooLarge},
	{sheet.ErrUnreadableWorkbook, msgUnreadable},
	{sheet.ErrUnsupportedFormat, msgUnreadable},
	{sheet.ErrEmptyWorkbook, msgEmptyFile},
	{ErrNoFile, msgNoFile},
	{ErrTooManyRuns, msgBusy},
	{context.Canceled, msgCanceled},
	{context.DeadlineExceeded, msgTimeout},
	{ErrHistoryDisabled, msgHistoryDisabled},
	{ErrRateLimited, msgRateLimited},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is the fallback for errors that wrap no sentinel, such as
// errors from net/http or text that crossed a process boundary.
// The first matching pattern wins, so order matters.
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	{"no result columns selected", msgNoResultColumns},
	{"key column not found", msgKeyColumnNotFound},
	{"invalid result column", msgInvalidResultColumn},
	{"file too large", msgFileTooLarge},
	{"request body too large", msgFileTooLarge},
	{"unreadable workbook", msgUnreadable},
	{"unsupported format", msgUnreadable},
	{"empty file", msgEmptyFile},
	{"no file provided", msgNoFile},
	{"too many concurrent merges", msgBusy},
	{"context canceled", msgCanceled},
	{"context deadline exceeded", msgTimeout},
	{"history disabled", msgHistoryDisabled},
	{"rate limit", msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the technical error
// when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Level:   LevelError,
}

// MapError converts a technical error to a user-friendly message with
// Detail set to the technical message. If nothing matches, a generic
// fallback with code ERR000 and no detail is returned.
//
// Example:
//
//	err := fmt.Errorf("primary file: %w", sheet.ErrEmptyWorkbook)
//	msg := MapError(err)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, es := range errorSentinels {
		if errors.Is(err, es.target) {
			return withDetail(es.msg, err)
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return withDetail(ep.msg, err)
		}
	}

	return defaultMessage
}

func withDetail(msg UserMessage, err error) UserMessage {
	msg.Detail = err.Error()
	return msg
}
