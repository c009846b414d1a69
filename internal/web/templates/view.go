// Package templates holds the templ components of the web UI. Handlers
// render full pages and HTMX partials through the same components.
//
// The *_templ.go files are generated from the .templ sources; run
// `templ generate` after editing them.
package templates

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetjoin/internal/core"
)

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1f2933}
header{background:#1f2933;color:#fff;padding:.8rem 1.5rem;display:flex;gap:1.5rem;align-items:center}
header a{color:#cbd2d9;text-decoration:none}header a.active{color:#fff;font-weight:600}
main{max-width:1100px;margin:1.5rem auto;padding:0 1rem}
.card{background:#fff;border-radius:6px;padding:1rem 1.25rem;margin-bottom:1rem;box-shadow:0 1px 2px rgba(0,0,0,.08)}
.grid{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
label{display:block;font-weight:600;margin:.5rem 0 .25rem}
select{min-width:14rem}
.columns{display:flex;flex-wrap:wrap;gap:.25rem 1rem;font-weight:400}
.columns label{font-weight:400;margin:0}
.columns input{margin-right:.3rem}
button{background:#2563eb;color:#fff;border:0;border-radius:4px;padding:.55rem 1.2rem;font-size:1rem;cursor:pointer}
.alert{border-radius:6px;padding:.75rem 1rem;margin-bottom:1rem}
.alert-error{background:#fde8e8;color:#9b1c1c}.alert-warning{background:#fdf6b2;color:#723b13}
.alert .muted{margin-left:.4rem}.alert small{display:block;opacity:.8}
table{border-collapse:collapse;font-size:.85rem;width:100%}
th,td{border:1px solid #e4e7eb;padding:.25rem .5rem;text-align:left;white-space:nowrap}
th{background:#f0f2f5}.scroll{overflow-x:auto}
td .muted,summary .muted{margin-left:.4rem}
.muted{color:#7b8794}.null{color:#b0b8c1}
`

// Alert is a user-facing message box.
type Alert struct {
	Level   string // "warning" or "error"
	Message string
	Action  string
	Code    string
	Detail  string
}

// IndexData is the state of the upload form page.
type IndexData struct {
	MaxFileSize int64
	Alert       *Alert
}

// InspectData drives the column controls shown once files are chosen.
// The selections are echoed back so a re-inspect keeps what the user picked.
type InspectData struct {
	Result        *core.InspectResult
	PrimaryKey    string
	ReferenceKey  string
	ResultColumns []string
	Alert         *Alert
}

func (d InspectData) empty() bool {
	return d.Result == nil || (d.Result.Primary == nil && d.Result.Reference == nil)
}

// summaries lists the inspected workbooks in form order.
func (d InspectData) summaries() []*core.WorkbookSummary {
	var out []*core.WorkbookSummary
	if d.Result == nil {
		return out
	}
	for _, s := range []*core.WorkbookSummary{d.Result.Primary, d.Result.Reference} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// pick keeps the user's choice when the file still has that column.
func pick(selected string, s *core.WorkbookSummary) string {
	for _, c := range s.Columns {
		if c == selected {
			return c
		}
	}
	return s.DefaultKey
}

func plural(n int, word string) string {
	s := strconv.Itoa(n) + " " + word
	if n != 1 {
		s += "s"
	}
	return s
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	if n >= 1024 {
		return strings.TrimSuffix(strconv.FormatFloat(float64(n)/mb, 'f', 1, 64), ".0") + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
