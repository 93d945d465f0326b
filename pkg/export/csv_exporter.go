package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Sheet is a titled table. Rows are positional and must match Headers in length.
type Sheet struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
}

func (s Sheet) validate(kind string) error {
	if len(s.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Headers) {
			return fmt.Errorf("%s row %d has %d cells, want %d", kind, i, len(row), len(s.Headers))
		}
	}
	return nil
}

// RenderCSV encodes the sheet as CSV. Title and subtitle are not emitted.
func RenderCSV(sheet Sheet) ([]byte, error) {
	if err := sheet.validate("csv"); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(sheet.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(sheet.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
