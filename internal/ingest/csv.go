package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrEmptyFile is returned when the CSV has no header row.
	ErrEmptyFile = errors.New("csv file is empty")
	// ErrMissingColumns is returned when required columns are absent.
	ErrMissingColumns = errors.New("csv file is missing required columns")
)

// requiredColumns are the columns every trip CSV must carry. Extra
// columns are preserved in the stored payload.
var requiredColumns = []string{"vehicle_id", "driver_id", "distance", "duration", "date"}

// TripRow is one parsed CSV row, keyed by header name.
type TripRow map[string]string

// ParseTripCSV reads trip rows from r. Input that is not valid UTF-8 is
// decoded as Latin-1, which covers the exports we see from legacy fleet
// terminals.
func ParseTripCSV(r io.Reader) ([]TripRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if !utf8.Valid(data) {
		data, err = io.ReadAll(transform.NewReader(strings.NewReader(string(data)), charmap.ISO8859_1.NewDecoder()))
		if err != nil {
			return nil, fmt.Errorf("decode latin-1 csv: %w", err)
		}
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var rows []TripRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}

		row := make(TripRow, len(columns))
		for name, idx := range columns {
			if idx < len(record) {
				row[name] = strings.TrimSpace(record[idx])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
