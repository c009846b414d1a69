package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/sheetjoin/internal/sheet"
)

// Upload is one uploaded workbook: its client-side name and raw bytes.
type Upload struct {
	Name string
	Data []byte
}

// RunRequest is everything one merge needs. It is built per request by the
// web layer and discarded when the request ends.
type RunRequest struct {
	Primary   Upload
	Reference Upload
	Merge     MergeRequest
}

// RunOutput is the encoded result of a successful run.
type RunOutput struct {
	RunID       string
	FileName    string
	ContentType string
	Data        []byte
	Result      *MergeResult
	Duration    time.Duration
}

// WorkbookSummary describes one uploaded workbook so the user can pick
// key and result columns.
type WorkbookSummary struct {
	FileName   string       `json:"fileName"`
	Format     string       `json:"format"`
	Sheets     []string     `json:"sheets"`
	Columns    []string     `json:"columns"`
	RowCount   int          `json:"rowCount"`
	Preview    *sheet.Table `json:"preview"`
	DefaultKey string       `json:"defaultKey"`
}

// InspectResult pairs the summaries of the primary and reference workbooks.
type InspectResult struct {
	Primary   *WorkbookSummary `json:"primary"`
	Reference *WorkbookSummary `json:"reference"`
}

// RunStatus is the outcome of a recorded run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the summary of one merge kept in run history.
// It never contains cell data from the uploaded files.
type RunRecord struct {
	ID            string        `json:"id"`
	Status        RunStatus     `json:"status"`
	PrimaryFile   string        `json:"primaryFile"`
	ReferenceFile string        `json:"referenceFile"`
	PrimaryKey    string        `json:"primaryKey"`
	ReferenceKey  string        `json:"referenceKey"`
	ResultColumns []string      `json:"resultColumns"`
	PrimaryRows   int           `json:"primaryRows"`
	OutputRows    int           `json:"outputRows"`
	MatchedRows   int           `json:"matchedRows"`
	UnmatchedRows int           `json:"unmatchedRows"`
	ErrorCode     string        `json:"errorCode,omitempty"`
	IPAddress     string        `json:"ipAddress,omitempty"`
	UserAgent     string        `json:"userAgent,omitempty"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// RunRecorder stores run summaries. The PostgreSQL implementation lives in
// the history package; a nil recorder disables history.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
