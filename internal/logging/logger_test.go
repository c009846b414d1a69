package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	h, cleanup := NewHandler(&buf, "info", "json", "")
	defer cleanup()

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("merge completed", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "merge completed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "merge completed")
	}
	if entry["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", entry["rows"])
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	h, cleanup := NewHandler(&buf, "debug", "text", "")
	defer cleanup()

	slog.New(h).Debug("inspecting upload", "file", "a.xlsx")

	if !strings.Contains(buf.String(), "file=a.xlsx") {
		t.Errorf("text output missing attribute: %q", buf.String())
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	m := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}

	logger := slog.New(m).With("run_id", "r1")
	logger.Debug("only debug sink")
	logger.Info("both sinks")

	if strings.Contains(infoBuf.String(), "only debug sink") {
		t.Error("info handler received a debug record")
	}
	if !strings.Contains(debugBuf.String(), "only debug sink") {
		t.Error("debug handler missed a debug record")
	}
	for name, buf := range map[string]*bytes.Buffer{"info": &infoBuf, "debug": &debugBuf} {
		if !strings.Contains(buf.String(), "both sinks") || !strings.Contains(buf.String(), "run_id=r1") {
			t.Errorf("%s handler output = %q", name, buf.String())
		}
	}
}

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	var ctx context.Context
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	WithFields(ctx, "run_id", "abc").Info("hello")

	out := buf.String()
	if !strings.Contains(out, "request_id=") {
		t.Errorf("missing request_id: %q", out)
	}
	if !strings.Contains(out, "run_id=abc") {
		t.Errorf("missing run_id: %q", out)
	}
}
