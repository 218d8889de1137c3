package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type csvFormat struct{}

func (csvFormat) Name() string { return "csv" }

func (csvFormat) CanDecode(filename string) bool {
	return hasExt(filename, ".csv", ".tsv")
}

// nullTokens are cell values read as missing, matching common dataframe defaults.
var nullTokens = map[string]struct{}{
	"": {}, "NULL": {}, "null": {}, "NaN": {}, "nan": {}, "NA": {}, "N/A": {}, "#N/A": {}, "None": {},
}

func (csvFormat) Decode(name string, data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = sniffDelimiter(name)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	var raw [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(raw)+1, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", len(raw)+1, ncol, len(rec))
		}
		if len(rec) < ncol {
			tmp := make([]string, ncol)
			copy(tmp, rec)
			rec = tmp
		}
		raw = append(raw, rec)
	}

	// A column is numeric only when every non-missing cell parses.
	numeric := make([]bool, ncol)
	for j := 0; j < ncol; j++ {
		numeric[j] = true
		seen := false
		for _, rec := range raw {
			s := rec[j]
			if isNullToken(s) {
				continue
			}
			seen = true
			if _, ok := ParseNumber(s); !ok {
				numeric[j] = false
				break
			}
		}
		if !seen {
			numeric[j] = false
		}
	}

	rows := make([][]Value, len(raw))
	for i, rec := range raw {
		row := make([]Value, ncol)
		for j, s := range rec {
			switch {
			case isNullToken(s):
				row[j] = NullValue()
			case numeric[j]:
				f, _ := ParseNumber(s)
				row[j] = NumberValue(f).withRaw(s)
			default:
				row[j] = StringValue(s)
			}
		}
		rows[i] = row
	}
	return NewTable(name, header, rows), nil
}

func isNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

// WriteCSV writes the table as comma-separated UTF-8 text with a header row
// and no index column. Nulls are written as empty cells.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
