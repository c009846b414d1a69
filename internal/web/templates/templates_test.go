package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetjoin/internal/core"
	"github.com/JonMunkholm/sheetjoin/internal/sheet"
	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func summary(name string, columns ...string) *core.WorkbookSummary {
	return &core.WorkbookSummary{
		FileName:   name,
		Format:     "xlsx",
		Sheets:     []string{"Sheet1"},
		Columns:    columns,
		RowCount:   1,
		Preview:    &sheet.Table{Columns: columns, Rows: [][]sheet.Value{make([]sheet.Value, len(columns))}},
		DefaultKey: columns[0],
	}
}

func TestIndexPage(t *testing.T) {
	out := render(t, IndexPage(IndexData{MaxFileSize: 50 << 20}))

	for _, want := range []string{
		`<!doctype html>`,
		`action="/merge"`,
		`name="primary"`,
		`name="reference"`,
		`hx-post="/inspect"`,
		`up to 50 MB each`,
		`Choose both files`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestInspectPanel_Selections(t *testing.T) {
	out := render(t, InspectPanel(InspectData{
		Result: &core.InspectResult{
			Primary:   summary("a.xlsx", "name", "PID"),
			Reference: summary("b.xlsx", "PID", "age", "country"),
		},
		PrimaryKey:    "PID",
		ReferenceKey:  "PID",
		ResultColumns: []string{"country"},
	}))

	if !strings.Contains(out, `<option value="PID" selected>`) {
		t.Error("primary key selection not kept")
	}
	if strings.Contains(out, `name="result_columns" value="PID"`) {
		t.Error("reference key offered as a result column")
	}
	if !strings.Contains(out, `value="age">`) {
		t.Error("unchecked result column missing")
	}
	if !strings.Contains(out, `value="country" checked>`) {
		t.Error("checked result column not kept")
	}
	if strings.Count(out, "<details") != 2 {
		t.Error("want one preview per file")
	}
}

func TestInspectPanel_OneFile(t *testing.T) {
	out := render(t, InspectPanel(InspectData{
		Result: &core.InspectResult{Primary: summary("a.xlsx", "id")},
	}))
	if !strings.Contains(out, "Choose the reference file.") {
		t.Errorf("missing reference hint: %s", out)
	}
	if strings.Contains(out, "result_columns") {
		t.Error("result columns shown without a reference file")
	}
}

func TestInspectPanel_StaleSelectionFallsBackToDefault(t *testing.T) {
	out := render(t, InspectPanel(InspectData{
		Result:     &core.InspectResult{Primary: summary("a.xlsx", "id", "x")},
		PrimaryKey: "gone",
	}))
	if !strings.Contains(out, `<option value="id" selected>`) {
		t.Errorf("default key not selected: %s", out)
	}
}

func TestAlertBox(t *testing.T) {
	if out := render(t, AlertBox(nil)); out != "" {
		t.Errorf("nil alert rendered %q", out)
	}

	out := render(t, AlertBox(&Alert{Level: "warning", Message: "Select at least one result column to copy", Code: "SEL001"}))
	if !strings.Contains(out, "alert-warning") || !strings.Contains(out, "SEL001") {
		t.Errorf("warning alert = %s", out)
	}

	out = render(t, AlertBox(&Alert{Level: "info", Message: "Boom", Action: "Retry", Detail: "<b>x</b>"}))
	if !strings.Contains(out, "alert-error") || !strings.Contains(out, "<div>Retry</div>") {
		t.Errorf("error alert = %s", out)
	}
	if !strings.Contains(out, "<small>&lt;b&gt;x&lt;/b&gt;</small>") {
		t.Errorf("detail not escaped: %s", out)
	}
	if strings.Contains(out, "muted") {
		t.Errorf("empty code rendered: %s", out)
	}
}

func TestLayout_ActiveNav(t *testing.T) {
	out := render(t, HistoryPage(nil, nil))
	if !strings.Contains(out, `<a href="/history" class="active">History</a>`) {
		t.Errorf("history not marked active: %s", out)
	}
	if !strings.Contains(out, `<a href="/">Lookup</a>`) {
		t.Errorf("lookup marked active: %s", out)
	}
	if !strings.Contains(out, "<title>History · sheetjoin</title>") {
		t.Errorf("title = %s", out)
	}
}

func TestEscaping(t *testing.T) {
	out := render(t, PreviewTable(&sheet.Table{
		Columns: []string{`<script>alert(1)</script>`},
		Rows:    [][]sheet.Value{{sheet.TextValue(`"quoted" & <b>`)}},
	}))
	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>") {
		t.Errorf("unescaped content: %s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("header not escaped: %s", out)
	}
}

func TestHistoryPartial(t *testing.T) {
	if out := render(t, HistoryPartial(nil)); !strings.Contains(out, "No merges recorded yet.") {
		t.Errorf("empty history = %s", out)
	}

	out := render(t, HistoryPage([]core.RunRecord{{
		ID:            "r1",
		Status:        core.RunFailed,
		PrimaryFile:   "a.xlsx",
		ReferenceFile: "b.xlsx",
		PrimaryKey:    "PID",
		ReferenceKey:  "ID",
		ResultColumns: []string{"age", "country"},
		ErrorCode:     "FILE005",
		Duration:      1234567 * time.Microsecond,
		CreatedAt:     time.Now(),
	}}, nil))
	for _, want := range []string{"a.xlsx", "PID = ID", "age, country", "FILE005", "1.235s"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q", want)
		}
	}
}
