package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/askdb/askdb/internal/domain"
)

// ErrNoData is the soft warning returned for empty input: no file is
// written and no clipboard is touched.
var ErrNoData = errors.New("no data to export")

// Columns returns the union of keys across all rows. The order is sorted so
// identical input always yields identical output bytes.
func Columns(rows domain.RowSet) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// ToCSV encodes the rows as comma-separated text with a header row.
func ToCSV(rows domain.RowSet) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	cols := Columns(rows)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("csv encode: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = formatCell(row[c])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv encode: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv encode: %w", err)
	}
	return buf.Bytes(), nil
}

// ToTSV encodes the rows as tab-separated text, the Excel-friendly
// clipboard format.
func ToTSV(rows domain.RowSet) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	cols := Columns(rows)
	var b strings.Builder
	b.WriteString(strings.Join(cols, "\t"))
	b.WriteByte('\n')
	for i, row := range rows {
		for j, c := range cols {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(formatCell(row[c]))
		}
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

// ToJSON pretty-prints the rows.
func ToJSON(rows domain.RowSet) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

// ToXLSX encodes the rows as a single-sheet workbook.
func ToXLSX(rows domain.RowSet) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	cols := Columns(rows)
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Data"
	f.SetSheetName("Sheet1", sheet)

	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c); err != nil {
			return nil, fmt.Errorf("xlsx encode: %w", err)
		}
	}
	for r, row := range rows {
		for i, c := range cols {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheet, cell, row[c]); err != nil {
				return nil, fmt.Errorf("xlsx encode: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV saves the CSV encoding to path.
func WriteCSV(rows domain.RowSet, path string) error {
	return write(rows, path, ToCSV)
}

// WriteJSON saves the pretty JSON encoding to path.
func WriteJSON(rows domain.RowSet, path string) error {
	return write(rows, path, ToJSON)
}

// WriteXLSX saves the workbook encoding to path.
func WriteXLSX(rows domain.RowSet, path string) error {
	return write(rows, path, ToXLSX)
}

func write(rows domain.RowSet, path string, encode func(domain.RowSet) ([]byte, error)) error {
	data, err := encode(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export write: %w", err)
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
