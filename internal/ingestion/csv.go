package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// RowError pinpoints one rejected value in a bulk upload. Row numbers
// are 1-based and count the header row, matching what the supplier
// sees in their spreadsheet.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ColumnMapping translates canonical field names to the supplier's
// header names. Unmapped fields are looked up under their canonical
// name directly.
type ColumnMapping map[string]string

func (m ColumnMapping) headerFor(field string) string {
	if m == nil {
		return field
	}
	if header, ok := m[field]; ok && header != "" {
		return header
	}
	return field
}

// parsedRow is one data line keyed by lowercased header, with its
// 1-based position in the file.
type parsedRow struct {
	number int
	values map[string]string
}

// parseCSV reads a header-driven CSV document. A structurally broken
// file (unreadable header, ragged record) fails the whole batch; no
// per-row recovery happens at this stage.
func parseCSV(r io.Reader) ([]parsedRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var rows []parsedRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		values := make(map[string]string, len(columns))
		for i, column := range columns {
			if i < len(record) {
				values[column] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, parsedRow{number: line, values: values})
	}
	return rows, nil
}

func (r parsedRow) get(mapping ColumnMapping, field string) string {
	return r.values[strings.ToLower(mapping.headerFor(field))]
}
