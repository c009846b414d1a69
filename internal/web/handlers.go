package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetjoin/internal/core"
	"github.com/JonMunkholm/sheetjoin/internal/logging"
	"github.com/JonMunkholm/sheetjoin/internal/web/templates"
)

// Form field names shared by the page and the API.
const (
	fieldPrimary       = "primary"
	fieldReference     = "reference"
	fieldPrimaryKey    = "primary_key"
	fieldReferenceKey  = "reference_key"
	fieldResultColumns = "result_columns"
)

// multipartMemory is how much of a form is held in memory before spilling
// file parts to disk.
const multipartMemory = 32 << 20

// mergeForm is one parsed inspect or merge submission.
type mergeForm struct {
	Primary   core.Upload
	Reference core.Upload
	Merge     core.MergeRequest
}

// parseMergeForm reads both uploads and the column selections.
// A missing file yields an empty Upload; the service decides whether that is
// an error.
func (s *Server) parseMergeForm(w http.ResponseWriter, r *http.Request) (*mergeForm, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	// Two files plus a little room for the other fields.
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	primary, err := readUpload(r, fieldPrimary, maxSize)
	if err != nil {
		return nil, err
	}
	reference, err := readUpload(r, fieldReference, maxSize)
	if err != nil {
		return nil, err
	}

	return &mergeForm{
		Primary:   primary,
		Reference: reference,
		Merge: core.MergeRequest{
			PrimaryKey:    r.FormValue(fieldPrimaryKey),
			ReferenceKey:  r.FormValue(fieldReferenceKey),
			ResultColumns: nonEmpty(r.MultipartForm.Value[fieldResultColumns]),
		},
	}, nil
}

// readUpload reads one file field. A field with no file gives an empty Upload.
func readUpload(r *http.Request, field string, maxSize int64) (core.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return core.Upload{}, nil
	}
	if err != nil {
		return core.Upload{}, fmt.Errorf("%s: %w: %v", field, core.ErrNoFile, err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return core.Upload{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", core.ErrFileTooLarge, header.Filename, header.Size, maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return core.Upload{}, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return core.Upload{Name: header.Filename, Data: data}, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// handleIndex renders the upload form page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, templates.IndexPage(templates.IndexData{
		MaxFileSize: s.cfg.Upload.MaxFileSize,
	}))
}

// handleInspect returns the column controls and previews for the uploaded
// files as an HTML fragment. Either file may still be missing.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMergeForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := templates.InspectData{
		PrimaryKey:    form.Merge.PrimaryKey,
		ReferenceKey:  form.Merge.ReferenceKey,
		ResultColumns: form.Merge.ResultColumns,
	}
	if len(form.Primary.Data) == 0 && len(form.Reference.Data) == 0 {
		renderPage(w, r, http.StatusOK, templates.InspectPanel(data))
		return
	}

	result, err := s.service.InspectPair(r.Context(), form.Primary, form.Reference)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data.Result = result
	renderPage(w, r, http.StatusOK, templates.InspectPanel(data))
}

// handleAPIInspect returns the summaries of the uploaded files as JSON.
func (s *Server) handleAPIInspect(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMergeForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.InspectPair(r.Context(), form.Primary, form.Reference)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMerge runs a merge and streams the xlsx back as an attachment.
// Serves both the page form and the API.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMergeForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	out, err := s.service.Run(ctx, core.RunRequest{
		Primary:   form.Primary,
		Reference: form.Reference,
		Merge:     form.Merge,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", out.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	h.Set("Content-Length", strconv.Itoa(len(out.Data)))
	h.Set("X-Run-ID", out.RunID)
	h.Set("X-Merged-Rows", strconv.Itoa(out.Result.OutputRows))
	h.Set("X-Unmatched-Rows", strconv.Itoa(out.Result.UnmatchedRows))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		s.logRequestError(r, "write merge result", err)
	}
}

// handleHistory renders recent runs.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.History(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if isHTMX(r) {
		renderPage(w, r, http.StatusOK, templates.HistoryPartial(runs))
		return
	}
	renderPage(w, r, http.StatusOK, templates.HistoryPage(runs, nil))
}

// HistoryResponse is the JSON body of /api/history.
type HistoryResponse struct {
	Runs []core.RunRecord `json:"runs"`
}

// handleAPIHistory returns recent runs as JSON.
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.History(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Runs: runs})
}

// HealthResponse is the JSON body of /healthz.
type HealthResponse struct {
	Status  string                `json:"status"`
	Merges  core.RunLimiterStatus `json:"merges"`
	History bool                  `json:"history"`
}

// handleHealth reports liveness and the merge limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Merges:  s.service.LimiterStatus(),
		History: s.service.HistoryEnabled(),
	})
}

func (s *Server) logRequestError(r *http.Request, msg string, err error) {
	logging.FromContext(r.Context()).Error(msg, "path", r.URL.Path, "error", err)
}
