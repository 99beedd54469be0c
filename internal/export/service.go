// Package export renders a completed job's events as CSV, JSON, or XLSX.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

var columns = []string{"event", "start", "end", "location", "description"}

// Format renders the events of a completed job. It returns the encoded bytes,
// a suggested filename, and the MIME content type.
func Format(job *entity.Job, format string) ([]byte, string, string, error) {
	if job.Status != constants.JobStatusCompleted {
		return nil, "", "", fmt.Errorf("%w: status is %q", common.ErrInvalidState, job.Status)
	}

	var (
		data        []byte
		contentType string
		err         error
	)
	switch strings.ToLower(format) {
	case FormatCSV, "":
		data, err = renderCSV(job.Events)
		contentType = "text/csv"
		format = FormatCSV
	case FormatJSON:
		data, err = renderJSON(job.Events)
		contentType = "application/json"
	case FormatXLSX:
		data, err = renderXLSX(job.Events)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, "", "", fmt.Errorf("%w: export format %q", common.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, "", "", err
	}
	return data, suggestedFilename(job, format), contentType, nil
}

func suggestedFilename(job *entity.Job, format string) string {
	return fmt.Sprintf("sof_events_%s.%s", job.ID.String()[:8], format)
}

func renderCSV(events []entity.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range events {
		row := []string{ev.Event, formatTime(ev.Start), formatTime(ev.End), ev.Location, ev.Description}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderJSON(events []entity.Event) ([]byte, error) {
	if events == nil {
		events = []entity.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return data, nil
}

func renderXLSX(events []entity.Event) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Events"
	f.SetSheetName("Sheet1", sheet)
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	for r, ev := range events {
		values := []string{ev.Event, formatTime(ev.Start), formatTime(ev.End), ev.Location, ev.Description}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}
	if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "C", "E", 28); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
