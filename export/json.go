// Package export renders scraped records as the downloadable JSON document
// and as a flattened CSV table.
package export

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/use-agent/stylegrab/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// File names offered for download.
const (
	JSONFileName = "scraped_elements.json"
	CSVFileName  = "scraped_elements.csv"
)

// MarshalJSON renders records as an indented JSON array. Absent attributes
// are null and absent optional blocks are omitted. A nil slice renders as [].
func MarshalJSON(records []models.ElementRecord) ([]byte, error) {
	if records == nil {
		records = []models.ElementRecord{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// WriteJSON writes the JSON document to w.
func WriteJSON(w io.Writer, records []models.ElementRecord) error {
	data, err := MarshalJSON(records)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
