package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/sheetjoin/internal/sheet"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
		wantLevel   string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
			wantLevel:   "",
		},
		{
			name:        "empty selection is a warning",
			err:         ErrNoResultColumns,
			wantCode:    "SEL001",
			wantMessage: "Select at least one result column to copy",
			wantLevel:   LevelWarning,
		},
		{
			name:        "missing key column maps correctly",
			err:         fmt.Errorf("%w: %q is not a column of the primary file", ErrKeyColumnNotFound, "PID"),
			wantCode:    "SEL002",
			wantMessage: "The chosen key column is not in the file",
			wantLevel:   LevelError,
		},
		{
			name:        "invalid result column maps correctly",
			err:         fmt.Errorf("%w: %q selected more than once", ErrInvalidResultColumn, "Name"),
			wantCode:    "SEL003",
			wantMessage: "A selected result column cannot be used",
			wantLevel:   LevelError,
		},
		{
			name:        "file too large maps correctly",
			err:         errors.New("file too large: 200MB exceeds limit"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
			wantLevel:   LevelError,
		},
		{
			name:        "unreadable workbook maps correctly",
			err:         fmt.Errorf("primary file: %w: a.xlsx: zip: not a valid zip file", sheet.ErrUnreadableWorkbook),
			wantCode:    "FILE002",
			wantMessage: "Unable to read the file",
			wantLevel:   LevelError,
		},
		{
			name:        "empty workbook maps correctly",
			err:         fmt.Errorf("reference file: b.xlsx: %w", sheet.ErrEmptyWorkbook),
			wantCode:    "FILE005",
			wantMessage: "The workbook has no data rows",
			wantLevel:   LevelError,
		},
		{
			name:        "missing upload maps correctly",
			err:         errors.New("no file provided for primary"),
			wantCode:    "FILE004",
			wantMessage: "A file was not selected",
			wantLevel:   LevelError,
		},
		{
			name:        "busy limiter maps correctly",
			err:         ErrTooManyRuns,
			wantCode:    "RUN001",
			wantMessage: "System is busy processing other merges",
			wantLevel:   LevelError,
		},
		{
			name:        "cancelled request maps correctly",
			err:         context.Canceled,
			wantCode:    "RUN002",
			wantMessage: "Request was cancelled",
			wantLevel:   LevelError,
		},
		{
			name:        "deadline maps correctly",
			err:         fmt.Errorf("merge: %w", context.DeadlineExceeded),
			wantCode:    "RUN003",
			wantMessage: "The merge took too long",
			wantLevel:   LevelError,
		},
		{
			name:        "history disabled maps correctly",
			err:         ErrHistoryDisabled,
			wantCode:    "HIS001",
			wantMessage: "Run history is not enabled",
			wantLevel:   LevelError,
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
			wantLevel:   LevelError,
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
			wantLevel:   LevelError,
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("EMPTY FILE: nothing here"),
			wantCode:    "FILE005",
			wantMessage: "The workbook has no data rows",
			wantLevel:   LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
			if got.Level != tt.wantLevel {
				t.Errorf("MapError() level = %q, want %q", got.Level, tt.wantLevel)
			}
		})
	}
}

func TestMapError_Detail(t *testing.T) {
	err := fmt.Errorf("reference file: b.xlsx: %w", sheet.ErrEmptyWorkbook)
	if got := MapError(err).Detail; got != err.Error() {
		t.Errorf("Detail = %q, want %q", got, err.Error())
	}

	if got := MapError(errors.New("secret internal path /var/x")).Detail; got != "" {
		t.Errorf("Detail for unknown error = %q, want empty", got)
	}
}

func TestMapError_SentinelBeatsMessageText(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "corrupt file named like an empty one",
			err:      fmt.Errorf("primary file: %w: empty file.xlsx: zip: not a valid zip file", sheet.ErrUnreadableWorkbook),
			wantCode: "FILE002",
		},
		{
			name:     "key column named like a limiter error",
			err:      fmt.Errorf("%w: %q is not a column of the primary file", ErrKeyColumnNotFound, "too many concurrent merges"),
			wantCode: "SEL002",
		},
		{
			name:     "empty workbook whose name mentions a missing file",
			err:      fmt.Errorf("reference file: no file provided.xlsx: %w", sheet.ErrEmptyWorkbook),
			wantCode: "FILE005",
		},
		{
			name:     "oversized upload",
			err:      fmt.Errorf("%w: unreadable workbook.xlsx is 9000 bytes", ErrFileTooLarge),
			wantCode: "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%q).Code = %q, want %q", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestMapError_PatternFallback(t *testing.T) {
	// net/http reports oversized bodies without a sentinel we own.
	err := errors.New("http: request body too large")
	msg := MapError(err)
	if msg.Code != "FILE001" {
		t.Errorf("Code = %q, want FILE001", msg.Code)
	}
	if msg.Detail != err.Error() {
		t.Errorf("Detail = %q, want %q", msg.Detail, err.Error())
	}
}
