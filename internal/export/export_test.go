package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"genekb/api/internal/history"
	"genekb/api/internal/model"
)

type staticSource []history.FlatRecord

func (s staticSource) GeneHistory(ctx context.Context, symbol string) ([]history.FlatRecord, error) {
	return s, nil
}

func sampleRecords() []history.FlatRecord {
	return []history.FlatRecord{
		{
			Admin:     "root",
			TimeStamp: 1700000000000,
			Record: &model.HistoryRecord{
				LastEditBy: "alice",
				Location:   "Gene Summary",
				Operation:  model.HistoryUpdate,
			},
		},
		{
			Admin:     "root",
			TimeStamp: 1700000100000,
			Record: &model.HistoryRecord{
				LastEditBy: "bob",
				Location:   "V600E",
				Operation:  model.HistoryAdd,
			},
		},
	}
}

func TestExportTSV(t *testing.T) {
	svc := New(staticSource(sampleRecords()))
	res, err := svc.Export(context.Background(), Request{Symbol: "BRAF", Format: FormatTSV})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "BRAF-history.tsv" {
		t.Errorf("filename = %q", res.Filename)
	}
	if res.MimeType != "text/tab-separated-values" {
		t.Errorf("mime = %q", res.MimeType)
	}
	lines := strings.Split(strings.TrimRight(string(res.Data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), res.Data)
	}
	if lines[0] != "time\tadmin\teditor\tlocation\toperation" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "alice\tGene Summary\tupdate") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := New(staticSource(nil))
	_, err := svc.Export(context.Background(), Request{Symbol: "BRAF", Format: Format("docx")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderHistoryHTML(t *testing.T) {
	html, err := renderHistoryHTML("BRAF", sampleRecords())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"BRAF", "Gene Summary", "alice", "op-update", "op-add"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestRenderHistoryHTMLEmpty(t *testing.T) {
	html, err := renderHistoryHTML("BRAF", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "No recorded history") {
		t.Error("empty trail not labelled")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"BRAF history":          "BRAF-history",
		"../../etc/pass":        "etcpass",
		"":                      "report",
		strings.Repeat("a", 80): strings.Repeat("a", 50),
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
