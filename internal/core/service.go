package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/sheetjoin/internal/config"
	"github.com/JonMunkholm/sheetjoin/internal/logging"
	"github.com/JonMunkholm/sheetjoin/internal/sheet"
	"github.com/google/uuid"
)

// PreferredKeyColumn is selected as the default key when a workbook has it.
const PreferredKeyColumn = "PID"

// recordTimeout bounds the best-effort history write after a run.
const recordTimeout = 5 * time.Second

var (
	// ErrNoFile is returned when an upload has no content.
	ErrNoFile = errors.New("no file provided")

	// ErrHistoryDisabled is returned by History when no recorder is configured.
	ErrHistoryDisabled = errors.New("history disabled: no database configured")
)

// Service runs lookup merges on uploaded workbooks.
// It keeps no per-user state: every call works on the bytes it is given.
type Service struct {
	cfg      *config.Config
	limiter  *RunLimiter
	recorder RunRecorder
}

// NewService creates a Service. recorder may be nil to disable run history.
func NewService(cfg *config.Config, recorder RunRecorder) *Service {
	return &Service{
		cfg:      cfg,
		limiter:  NewRunLimiter(cfg.Merge.MaxConcurrent, cfg.Merge.MaxWaitTime),
		recorder: recorder,
	}
}

// HistoryEnabled reports whether runs are being recorded.
func (s *Service) HistoryEnabled() bool {
	return s.recorder != nil
}

// Inspect loads one workbook and summarizes it for column selection.
func (s *Service) Inspect(ctx context.Context, up Upload) (*WorkbookSummary, error) {
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFile, up.Name)
	}

	wb, err := sheet.LoadBytes(up.Data, up.Name)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("workbook inspected",
		"file", up.Name,
		"format", wb.Format.String(),
		"sheets", len(wb.Sheets),
		"rows", wb.Table.Len(),
	)

	return &WorkbookSummary{
		FileName:   up.Name,
		Format:     wb.Format.String(),
		Sheets:     wb.Sheets,
		Columns:    wb.Table.Columns,
		RowCount:   wb.Table.Len(),
		Preview:    wb.Table.Head(s.cfg.Upload.PreviewRows),
		DefaultKey: defaultKey(wb.Table.Columns),
	}, nil
}

// InspectPair inspects whichever of the primary and reference uploads carry
// data; the summary of a missing one is nil. The error names the file that
// failed. Returns ErrNoFile when neither upload has data.
func (s *Service) InspectPair(ctx context.Context, primary, reference Upload) (*InspectResult, error) {
	if len(primary.Data) == 0 && len(reference.Data) == 0 {
		return nil, ErrNoFile
	}

	res := &InspectResult{}
	if len(primary.Data) > 0 {
		p, err := s.Inspect(ctx, primary)
		if err != nil {
			return nil, fmt.Errorf("primary file: %w", err)
		}
		res.Primary = p
	}
	if len(reference.Data) > 0 {
		r, err := s.Inspect(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("reference file: %w", err)
		}
		res.Reference = r
	}
	return res, nil
}

// Run executes one merge: validate the selections, load both workbooks,
// merge, and encode the result as a single-sheet xlsx.
//
// Selection errors are returned before either file is parsed. Returns
// ErrTooManyRuns if no run slot frees up within the configured wait.
// Every attempt is recorded in history when a recorder is configured.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunOutput, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := logging.WithFields(ctx,
		"run_id", runID,
		"primary_file", req.Primary.Name,
		"reference_file", req.Reference.Name,
	)

	out, result, err := s.run(ctx, req)
	duration := time.Since(start)

	s.record(ctx, runID, req, result, err, duration)

	if err != nil {
		if MapError(err).Level == LevelWarning {
			logger.Info("merge refused", "reason", err)
		} else {
			logger.Warn("merge failed", "error", err, "duration_ms", duration.Milliseconds())
		}
		return nil, err
	}

	out.RunID = runID
	out.Duration = duration
	logger.Info("merge completed",
		"output_rows", result.OutputRows,
		"matched", result.MatchedRows,
		"unmatched", result.UnmatchedRows,
		"duration_ms", duration.Milliseconds(),
	)
	return out, nil
}

func (s *Service) run(ctx context.Context, req RunRequest) (*RunOutput, *MergeResult, error) {
	if err := req.Merge.Validate(); err != nil {
		return nil, nil, err
	}
	if len(req.Primary.Data) == 0 {
		return nil, nil, fmt.Errorf("primary file: %w", ErrNoFile)
	}
	if len(req.Reference.Data) == 0 {
		return nil, nil, fmt.Errorf("reference file: %w", ErrNoFile)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	defer s.limiter.Release()

	// The deadline is checked between stages; a load or encode in progress
	// runs to completion.
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Merge.Timeout)
	defer cancel()

	primary, err := sheet.LoadBytes(req.Primary.Data, req.Primary.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("primary file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	reference, err := sheet.LoadBytes(req.Reference.Data, req.Reference.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("reference file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	result, err := Merge(primary.Table, reference.Table, req.Merge)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, result, err
	}

	data, err := sheet.Encode(result.Table, s.cfg.Merge.SheetName)
	if err != nil {
		return nil, result, fmt.Errorf("encode result: %w", err)
	}

	return &RunOutput{
		FileName:    s.cfg.Merge.OutputFileName,
		ContentType: sheet.ContentType,
		Data:        data,
		Result:      result,
	}, result, nil
}

// record writes the run summary. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, runID string, req RunRequest, result *MergeResult, runErr error, duration time.Duration) {
	if s.recorder == nil {
		return
	}

	rec := RunRecord{
		ID:            runID,
		Status:        RunSucceeded,
		PrimaryFile:   req.Primary.Name,
		ReferenceFile: req.Reference.Name,
		PrimaryKey:    req.Merge.PrimaryKey,
		ReferenceKey:  req.Merge.ReferenceKey,
		ResultColumns: req.Merge.ResultColumns,
		IPAddress:     GetIPAddressFromContext(ctx),
		UserAgent:     GetUserAgentFromContext(ctx),
		Duration:      duration,
		CreatedAt:     time.Now(),
	}
	if result != nil {
		rec.PrimaryRows = result.PrimaryRows
		rec.OutputRows = result.OutputRows
		rec.MatchedRows = result.MatchedRows
		rec.UnmatchedRows = result.UnmatchedRows
	}
	if runErr != nil {
		rec.Status = RunFailed
		rec.ErrorCode = MapError(runErr).Code
	}

	// The request may already be cancelled; the record should still land.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.recorder.RecordRun(recCtx, rec); err != nil {
		logging.FromContext(ctx).Error("failed to record run", "run_id", runID, "error", err)
	}
}

// History returns up to limit recent runs, newest first. A non-positive
// limit uses the configured default.
func (s *Service) History(ctx context.Context, limit int) ([]RunRecord, error) {
	if s.recorder == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = s.cfg.Merge.HistoryLimit
	}
	runs, err := s.recorder.RecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return runs, nil
}

// LimiterStatus returns the current run limiter status for monitoring.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until all active runs complete or ctx is cancelled.
// Used during graceful shutdown.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// defaultKey picks PreferredKeyColumn when present, else the first column.
func defaultKey(columns []string) string {
	for _, c := range columns {
		if c == PreferredKeyColumn {
			return c
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}
