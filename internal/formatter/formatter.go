package formatter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/viz"
)

// Formatter renders query results for the terminal and for export
type Formatter struct{}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatResult renders a result as an ASCII table with a footer line
// describing row count, truncation, and the selected chart.
func (f *Formatter) FormatResult(result *execute.Result, chart viz.ChartSpec) string {
	if result == nil {
		return "(no result)"
	}

	var sb strings.Builder

	tw := table.NewWriter()
	tw.SetOutputMirror(&sb)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Name
	}

	tw.AppendHeader(header)

	for _, row := range result.Rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = formatValue(v)
		}

		tw.AppendRow(tr)
	}

	tw.Render()

	sb.WriteString(f.footer(result, chart))

	return sb.String()
}

func (f *Formatter) footer(result *execute.Result, chart viz.ChartSpec) string {
	var sb strings.Builder

	noun := "rows"
	if result.RowCount == 1 {
		noun = "row"
	}

	fmt.Fprintf(&sb, "%d %s", result.RowCount, noun)

	if result.Truncated {
		sb.WriteString(" (truncated)")
	}

	if chart.Kind != "" && chart.Kind != viz.KindTable {
		fmt.Fprintf(&sb, " | suggested chart: %s", chart.Kind)

		if chart.XField != "" {
			fmt.Fprintf(&sb, " (x: %s, y: %s)", chart.XField, strings.Join(chart.YFields, ", "))
		}
	}

	sb.WriteString("\n")

	return sb.String()
}

// ExportCSV writes the result to a CSV file in exportDir and returns the path
func (f *Formatter) ExportCSV(result *execute.Result, exportDir string) (string, error) {
	if result == nil {
		return "", errors.New(errors.ErrTypeInternal, "no result to export")
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInternal, "failed to create export directory")
	}

	name := fmt.Sprintf("askdb_%s_%s.csv",
		time.Now().UTC().Format("20060102T150405"), uuid.New().String()[:8])
	path := filepath.Join(exportDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInternal, "failed to create export file")
	}

	defer file.Close()

	w := csv.NewWriter(file)

	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Name
	}

	if err := w.Write(header); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInternal, "failed to write CSV header")
	}

	record := make([]string, len(result.Columns))

	for _, row := range result.Rows {
		for i, v := range row {
			record[i] = formatValue(v)
		}

		if err := w.Write(record); err != nil {
			return "", errors.Wrap(err, errors.ErrTypeInternal, "failed to write CSV row")
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInternal, "failed to flush CSV")
	}

	return path, nil
}

// formatValue renders a single cell. Floats drop trailing zeros and times use
// a date-only form when they carry no clock component.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}

		return val.Format("2006-01-02 15:04:05")
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
