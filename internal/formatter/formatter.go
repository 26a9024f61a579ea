// package formatter writes batch run reports to various formats (JSON, CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/subsync/internal/tasks"
)

// ReportToJSON renders a batch result as indented JSON.
func ReportToJSON(result *tasks.BatchResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// ReportToCSV renders per-item outcomes as CSV with columns:
// ItemID, Name, Status, SubsonicID, Strategy, Events, Reason
func ReportToCSV(result *tasks.BatchResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ItemID", "Name", "Status", "SubsonicID", "Strategy", "Events", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, out := range result.Outcomes {
		record := []string{
			strconv.FormatInt(out.ItemID, 10),
			out.Name,
			out.Status.String(),
			out.SubsonicID,
			out.Strategy,
			strconv.Itoa(out.Events),
			out.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportToMarkdown renders a summary table followed by per-item rows.
func ReportToMarkdown(result *tasks.BatchResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s run %s\n\n", result.Operation, result.RunID)
	fmt.Fprintf(&buf, "- Total: %d\n- Succeeded: %d\n- Skipped: %d\n- Failed: %d\n\n",
		result.Total, result.Succeeded, result.Skipped, result.Failed)

	buf.WriteString("| Item | Status | Server ID | Strategy | Reason |\n")
	buf.WriteString("|------|--------|-----------|----------|--------|\n")
	for _, out := range result.Outcomes {
		fmt.Fprintf(&buf, "| %s | %s | %s | %s | %s |\n",
			escapePipes(out.Name),
			out.Status,
			out.SubsonicID,
			out.Strategy,
			escapePipes(out.Reason),
		)
	}

	return buf.Bytes()
}

// WriteReport writes a batch result to path, choosing the format from
// the file extension: .json, .csv, or .md.
func WriteReport(result *tasks.BatchResult, path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		data, err = ReportToCSV(result)
	case ".md", ".markdown":
		data = ReportToMarkdown(result)
	case ".json", "":
		data, err = ReportToJSON(result)
	default:
		return fmt.Errorf("unsupported report format: %s", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
