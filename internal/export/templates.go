package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"genekb/api/internal/history"
)

const historyReportHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Symbol}} curation history</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 11px; color: #1a1a1a; margin: 0; }
h1 { font-size: 20px; margin-bottom: 2px; }
.subtitle { color: #666; margin-bottom: 18px; }
table { width: 100%; border-collapse: collapse; }
th { text-align: left; border-bottom: 2px solid #333; padding: 4px 6px; font-size: 10px; text-transform: uppercase; letter-spacing: 0.04em; }
td { border-bottom: 1px solid #ddd; padding: 4px 6px; vertical-align: top; }
tr { page-break-inside: avoid; }
.op { white-space: nowrap; font-weight: bold; }
.op-add { color: #1a7f37; }
.op-delete { color: #b42318; }
.op-update { color: #175cd3; }
.time { white-space: nowrap; color: #444; }
.empty { color: #888; font-style: italic; padding: 12px 6px; }
</style>
</head>
<body>
<h1>{{.Symbol}}</h1>
<div class="subtitle">Curation history report, generated {{.Generated}}</div>
<table>
<thead>
<tr><th>Time</th><th>Admin</th><th>Editor</th><th>Location</th><th>Operation</th></tr>
</thead>
<tbody>
{{range .Rows}}
<tr>
<td class="time">{{.Time}}</td>
<td>{{.Admin}}</td>
<td>{{.Editor}}</td>
<td>{{.Location}}</td>
<td class="op {{.OpClass}}">{{.Operation}}</td>
</tr>
{{else}}
<tr><td colspan="5" class="empty">No recorded history for this gene.</td></tr>
{{end}}
</tbody>
</table>
</body>
</html>`

var historyReportTmpl = template.Must(template.New("history").Parse(historyReportHTML))

type reportRow struct {
	Time      string
	Admin     string
	Editor    string
	Location  string
	Operation string
	OpClass   string
}

type reportData struct {
	Symbol    string
	Generated string
	Rows      []reportRow
}

func renderHistoryHTML(symbol string, records []history.FlatRecord) (string, error) {
	data := reportData{
		Symbol:    symbol,
		Generated: time.Now().UTC().Format("2006-01-02 15:04 UTC"),
	}
	for _, r := range records {
		data.Rows = append(data.Rows, reportRow{
			Time:      time.UnixMilli(r.TimeStamp).UTC().Format("2006-01-02 15:04"),
			Admin:     r.Admin,
			Editor:    r.Record.LastEditBy,
			Location:  r.Record.Location,
			Operation: string(r.Record.Operation),
			OpClass:   operationClass(string(r.Record.Operation)),
		})
	}
	var buf bytes.Buffer
	if err := historyReportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render history report: %w", err)
	}
	return buf.String(), nil
}

func operationClass(op string) string {
	switch op {
	case "add", "promote":
		return "op-add"
	case "delete", "demote":
		return "op-delete"
	default:
		return "op-update"
	}
}
