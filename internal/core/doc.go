// Package core provides the business logic for spreadsheet lookup merges.
//
// This package is independent of any UI or transport layer. It can be used
// by web handlers, CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Merge: a pure left join of selected reference columns onto a primary
//     table by one key column, each copied column renamed with [LookupSuffix].
//   - Service: the entry point for inspecting uploads and running merges.
//   - RunLimiter: bounds how many merges hold workbooks in memory at once.
//   - RunRecorder: optional run history; see the history package.
//
// # Running a Merge
//
// A merge is one synchronous call with everything it needs:
//
//	out, err := svc.Run(ctx, core.RunRequest{
//	    Primary:   core.Upload{Name: "people.xlsx", Data: a},
//	    Reference: core.Upload{Name: "ages.xlsx", Data: b},
//	    Merge: core.MergeRequest{
//	        PrimaryKey:    "PID",
//	        ReferenceKey:  "PID",
//	        ResultColumns: []string{"age"},
//	    },
//	})
//
// The flow is:
//
//  1. The selection is validated; an empty selection fails before any file is read
//  2. A limiter slot is acquired (or [ErrTooManyRuns] after the wait expires)
//  3. Both workbooks are loaded; a failure names the file that caused it
//  4. [Merge] builds the result table
//  5. The table is encoded as a single-sheet xlsx and a [RunRecord] is stored
//
// Nothing survives the call except the optional history record.
//
// # Key Matching
//
// Keys match only when they have the same kind and value (see sheet.Value).
// Text "000123" never matches the number 123, and empty key cells match each
// other. A primary row with no match keeps one output row with empty lookup
// cells; a key found several times in the reference produces one output row
// per match, in reference order.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: File errors (size, format, missing, empty)
//   - SEL001-SEL003: Selection errors (no result columns, bad key or column)
//   - RUN001-RUN003: Run errors (busy, cancelled, timeout)
//   - HIS001: History not configured
//   - RATE001: Rate limited
package core
