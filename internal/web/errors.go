package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted appropriately based on request type (HTMX, JSON, or HTML)
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. The support code picks the HTTP status
//  5. Technical error + context is logged with request ID for correlation
//  6. User message is rendered in appropriate format for the client

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetjoin/internal/core"
	"github.com/JonMunkholm/sheetjoin/internal/logging"
	"github.com/JonMunkholm/sheetjoin/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Level   string `json:"level"`
	Detail  string `json:"detail,omitempty"`
}

// statusForCode maps a support code to an HTTP status.
func statusForCode(code string) int {
	switch {
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case code == "SEL001":
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "FILE"), strings.HasPrefix(code, "SEL"):
		return http.StatusBadRequest
	case code == "RUN001":
		return http.StatusServiceUnavailable
	case code == "RUN002":
		return http.StatusRequestTimeout
	case code == "RUN003":
		return http.StatusGatewayTimeout
	case code == "HIS001":
		return http.StatusNotFound
	case code == "RATE001":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (HTMX, JSON, or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	statusCode := statusForCode(userMsg.Code)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Warn("request rejected")
	}

	w.Header().Set("X-Error-Code", userMsg.Code)

	// Return user-friendly error based on request type.
	// htmx only swaps 2xx responses, so partials go out as 200.
	if isHTMX(r) {
		renderPage(w, r, http.StatusOK, templates.AlertBox(alertFor(userMsg)))
	} else if wantsJSON(r) {
		respondErrorJSON(w, userMsg, statusCode)
	} else {
		s.respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Level:   msg.Level,
		Detail:  msg.Detail,
	})
}

// respondErrorHTML re-renders the page the form came from with the message.
func (s *Server) respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	alert := alertFor(msg)
	if r.URL.Path == "/history" {
		renderPage(w, r, statusCode, templates.HistoryPage(nil, alert))
		return
	}
	renderPage(w, r, statusCode, templates.IndexPage(templates.IndexData{
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		Alert:       alert,
	}))
}

func alertFor(msg core.UserMessage) *templates.Alert {
	return &templates.Alert{
		Level:   msg.Level,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Detail:  msg.Detail,
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	contentType := r.Header.Get("Content-Type")

	// Check Accept header
	if strings.Contains(accept, "application/json") {
		return true
	}

	// Check if request is sending JSON
	if strings.Contains(contentType, "application/json") {
		return true
	}

	// API routes default to JSON
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}

	return false
}
