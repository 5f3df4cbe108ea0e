package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ReadJSON decodes a JSON array of rows.
func ReadJSON(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// WriteJSON encodes rows as an indented JSON array.
func WriteJSON(rows []Row, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// csvColumns maps header names (lowercased) to row field setters.
// Unknown columns are ignored so exports with extra columns still load.
var csvColumns = map[string]func(*Row, string){
	"id":        func(r *Row, v string) { r.ID = v },
	"service":   func(r *Row, v string) { r.Service = v },
	"step":      func(r *Row, v string) { r.Step = v },
	"task":      func(r *Row, v string) { r.Task = v },
	"type":      func(r *Row, v string) { r.Type = RowType(v) },
	"condition": func(r *Row, v string) { r.Condition = v },
	"yes":       func(r *Row, v string) { r.Yes = v },
	"no":        func(r *Row, v string) { r.No = v },
}

// ReadCSV decodes rows from CSV. The first record must be a header naming
// the columns (id, service, step, task, type, condition, yes, no, in any
// order); column names are matched case-insensitively.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	setters := make([]func(*Row, string), len(header))
	known := 0
	for i, name := range header {
		if set, ok := csvColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("no recognized columns in header %v", header)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		var row Row
		for i, v := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, strings.TrimSpace(v))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
