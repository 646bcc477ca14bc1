package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/use-agent/stylegrab/models"
)

// KeySeparator joins nested keys into a column name.
const KeySeparator = "."

// Table is a flattened view of a record collection.
type Table struct {
	Header []string
	Rows   [][]string
}

// Flatten turns each record into one row. Nested objects become dotted
// column names ("main_div.styles.position"); the header is the union of all
// columns in the order they are first seen. A record without a column gets
// an empty cell there, as does a null value.
func Flatten(records []models.ElementRecord) (*Table, error) {
	t := &Table{}
	index := map[string]int{}
	flat := make([]map[string]string, 0, len(records))

	for i := range records {
		data, err := json.Marshal(&records[i])
		if err != nil {
			return nil, fmt.Errorf("flatten record %d: %w", records[i].Index, err)
		}
		row := map[string]string{}
		iter := jsoniter.ParseBytes(json, data)
		walk(iter, "", func(key, value string) {
			if _, ok := index[key]; !ok {
				index[key] = len(t.Header)
				t.Header = append(t.Header, key)
			}
			row[key] = value
		})
		if iter.Error != nil && iter.Error != io.EOF {
			return nil, fmt.Errorf("flatten record %d: %w", records[i].Index, iter.Error)
		}
		flat = append(flat, row)
	}

	for _, row := range flat {
		cells := make([]string, len(t.Header))
		for key, v := range row {
			cells[index[key]] = v
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// walk emits every leaf of the JSON value under prefix in document order.
// Arrays are kept as JSON text in a single cell.
func walk(iter *jsoniter.Iterator, prefix string, emit func(key, value string)) {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			key := field
			if prefix != "" {
				key = prefix + KeySeparator + field
			}
			walk(it, key, emit)
			return it.Error == nil
		})
	case jsoniter.ArrayValue:
		emit(prefix, string(iter.SkipAndReturnBytes()))
	case jsoniter.NilValue:
		iter.ReadNil()
		emit(prefix, "")
	case jsoniter.StringValue:
		emit(prefix, iter.ReadString())
	case jsoniter.NumberValue:
		emit(prefix, string(iter.ReadNumber()))
	case jsoniter.BoolValue:
		if iter.ReadBool() {
			emit(prefix, "true")
		} else {
			emit(prefix, "false")
		}
	default:
		iter.Skip()
	}
}

// WriteCSV writes the flattened table, header first. No records writes nothing.
func WriteCSV(w io.Writer, records []models.ElementRecord) error {
	t, err := Flatten(records)
	if err != nil {
		return err
	}
	if len(t.Header) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// MarshalCSV renders the flattened table to bytes.
func MarshalCSV(records []models.ElementRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
