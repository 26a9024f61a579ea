package formatter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/subsync/internal/tasks"
)

func sampleResult() *tasks.BatchResult {
	return &tasks.BatchResult{
		RunID:     "run-123",
		Operation: "resolve-ids",
		Total:     2,
		Succeeded: 1,
		Skipped:   1,
		Outcomes: []tasks.Outcome{
			{ItemID: 1, Name: "Radiohead - Karma Police", Status: tasks.StatusSuccess, SubsonicID: "s1", Strategy: "title"},
			{ItemID: 2, Name: "Nobody - Unknown | Song", Status: tasks.StatusSkipped, Reason: "no match on server"},
		},
	}
}

func TestReportToJSON(t *testing.T) {
	data, err := ReportToJSON(sampleResult())
	if err != nil {
		t.Fatalf("ReportToJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if decoded["run_id"] != "run-123" {
		t.Errorf("unexpected run_id: %v", decoded["run_id"])
	}
	outcomes, ok := decoded["outcomes"].([]any)
	if !ok || len(outcomes) != 2 {
		t.Fatalf("unexpected outcomes: %v", decoded["outcomes"])
	}
	first := outcomes[0].(map[string]any)
	if first["status"] != "success" {
		t.Errorf("status should marshal as a string, got %v", first["status"])
	}
}

func TestReportToCSV(t *testing.T) {
	data, err := ReportToCSV(sampleResult())
	if err != nil {
		t.Fatalf("ReportToCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "ItemID" || records[0][2] != "Status" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][3] != "s1" || records[1][4] != "title" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[2][6] != "no match on server" {
		t.Errorf("unexpected reason column: %v", records[2])
	}
}

func TestReportToMarkdown(t *testing.T) {
	out := string(ReportToMarkdown(sampleResult()))

	if !strings.Contains(out, "# resolve-ids run run-123") {
		t.Errorf("missing title: %s", out)
	}
	if !strings.Contains(out, "- Succeeded: 1") {
		t.Errorf("missing summary counts: %s", out)
	}
	if !strings.Contains(out, "| Radiohead - Karma Police | success | s1 | title |") {
		t.Errorf("missing outcome row: %s", out)
	}
	if !strings.Contains(out, `Nobody - Unknown \| Song`) {
		t.Errorf("pipes in names must be escaped: %s", out)
	}
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		contains string
	}{
		{"json extension", "report.json", `"run_id": "run-123"`},
		{"csv extension", "report.csv", "ItemID,Name,Status"},
		{"markdown extension", "report.md", "# resolve-ids run run-123"},
		{"no extension defaults to json", "report", `"run_id": "run-123"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			if err := WriteReport(sampleResult(), path); err != nil {
				t.Fatalf("WriteReport failed: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read report: %v", err)
			}
			if !strings.Contains(string(data), tt.contains) {
				t.Errorf("report missing %q:\n%s", tt.contains, data)
			}
		})
	}

	t.Run("unknown extension is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.xml")
		if err := WriteReport(sampleResult(), path); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}
