package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow looks up a trimmed cell by column name.
type csvRow func(col string) string

// readCSV parses a header-based CSV export and calls fn once per data row.
// Rows that cannot be parsed or have the wrong column count become
// warnings. With foldCase, column names match case-insensitively.
func readCSV(data []byte, required string, foldCase bool, result *ImportResult, fn func(rowNum int, get csvRow)) error {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("importer: failed to read CSV header: %w", err)
	}

	key := func(s string) string {
		s = strings.TrimSpace(s)
		if foldCase {
			return strings.ToLower(s)
		}
		return s
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[key(col)] = i
	}
	if _, ok := colIndex[key(required)]; !ok {
		return fmt.Errorf("importer: missing required column: %s", required)
	}

	rowNum := 1
	for {
		rowNum++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: failed to parse: %v", rowNum, err))
			continue
		}
		if len(row) != len(header) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: column count mismatch (expected %d, got %d)",
					rowNum, len(header), len(row)))
			continue
		}

		fn(rowNum, func(col string) string {
			if idx, ok := colIndex[key(col)]; ok {
				return strings.TrimSpace(row[idx])
			}
			return ""
		})
	}
	return nil
}
