package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readDataset parses delimited numeric rows. Blank lines and lines starting
// with '#' are skipped, fields are whitespace-trimmed, and every row must
// have the same number of fields as the first.
func readDataset(r io.Reader, delimiter rune, header bool) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var data [][]float64
	skipHeader := header
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if skipHeader {
			skipHeader = false
			continue
		}

		line, _ := cr.FieldPos(0)
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, j+1, err)
			}
			row[j] = v
		}
		data = append(data, row)
	}
	return data, nil
}
