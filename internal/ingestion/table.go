package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not CSV or XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Table is an uploaded sheet split into a header row and data rows. Every
// data row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
	// HeaderRow and RowNumbers are 1-based positions in the source file.
	HeaderRow  int
	RowNumbers []int
}

// ParseTable reads the first sheet of an XLSX file or a CSV file. When
// headerRow is nil the first non-empty row is taken as the header.
func ParseTable(fileName string, payload []byte, headerRow *int) (Table, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload, headerRow)
	case ".xlsx":
		return parseExcel(payload, headerRow)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte, headerRow *int) (Table, error) {
	payload, err := decodeText(bytes.TrimPrefix(payload, byteOrderMark))
	if err != nil {
		return Table{}, err
	}

	csvReader := csv.NewReader(bytes.NewReader(payload))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	if semicolonSeparated(payload) {
		csvReader.Comma = ';'
	}

	records, err := csvReader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return normalizeTable(records, headerRow)
}

// decodeText returns payload as UTF-8. Files that are not valid UTF-8 are
// read as Windows-1251, the default export encoding of Russian spreadsheets.
func decodeText(payload []byte) ([]byte, error) {
	if utf8.Valid(payload) {
		return payload, nil
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode csv as windows-1251: %w", err)
	}
	return decoded, nil
}

// semicolonSeparated detects the export format of spreadsheet programs in
// locales that use a decimal comma.
func semicolonSeparated(sample []byte) bool {
	line, _, _ := bytes.Cut(sample, []byte("\n"))
	return bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(","))
}

func parseExcel(payload []byte, headerRow *int) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Table{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, errors.New("xlsx file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return normalizeTable(rows, headerRow)
}

func normalizeTable(records [][]string, headerRow *int) (Table, error) {
	if len(records) == 0 {
		return Table{}, errors.New("no rows found in file")
	}

	headerIndex := -1
	if headerRow != nil {
		idx := *headerRow - 1
		if idx < 0 || idx >= len(records) {
			return Table{}, fmt.Errorf("header row %d out of range", *headerRow)
		}
		if isBlank(records[idx]) {
			return Table{}, fmt.Errorf("header row %d is empty", *headerRow)
		}
		headerIndex = idx
	} else {
		for idx, row := range records {
			if !isBlank(row) {
				headerIndex = idx
				break
			}
		}
	}
	if headerIndex < 0 {
		return Table{}, errors.New("header row could not be detected")
	}

	headers := make([]string, len(records[headerIndex]))
	for i, value := range records[headerIndex] {
		headers[i] = strings.TrimSpace(value)
	}

	table := Table{Headers: headers, HeaderRow: headerIndex + 1}
	for idx := headerIndex + 1; idx < len(records); idx++ {
		if isBlank(records[idx]) {
			continue
		}
		table.Rows = append(table.Rows, padRow(records[idx], len(headers)))
		table.RowNumbers = append(table.RowNumbers, idx+1)
	}
	return table, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
