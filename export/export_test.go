package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/use-agent/stylegrab/models"
)

func strp(s string) *string { return &s }

func fullRecord() models.ElementRecord {
	return models.ElementRecord{
		Index: 1,
		Main: models.MainAttributes{
			Tag:     "div",
			Classes: strp("shot"),
			TestID:  strp("draggable-screenshot-image"),
			Style:   models.StyleSnapshot{"position": "relative", "display": "flex"},
		},
		Image: &models.ImageAttributes{
			Src:   strp("/a.png"),
			Style: models.StyleSnapshot{"cursor": "grab"},
		},
		Pointer: &models.PointerAttributes{
			TestID: strp("action-click-target"),
			Style:  models.StyleSnapshot{"left": "10px"},
		},
	}
}

func bareRecord() models.ElementRecord {
	return models.ElementRecord{
		Index: 2,
		Main: models.MainAttributes{
			Tag:   "div",
			Style: models.StyleSnapshot{"position": "static", "display": "block"},
		},
	}
}

func TestMarshalJSON_Shape(t *testing.T) {
	data, err := MarshalJSON([]models.ElementRecord{fullRecord(), bareRecord()})
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`"element_index": 1`,
		`"main_div": {`,
		`"data-testid": "draggable-screenshot-image"`,
		`"computed_styles": {`,
		`"classes": null`,
		"\n  {\n    \"element_index\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %q:\n%s", want, out)
		}
	}
	// Absent blocks are omitted, not null.
	second := out[strings.Index(out, `"element_index": 2`):]
	if strings.Contains(second, `"image"`) || strings.Contains(second, `"pointer"`) {
		t.Errorf("bare record should omit optional blocks:\n%s", second)
	}
}

func TestMarshalJSON_Empty(t *testing.T) {
	data, err := MarshalJSON(nil)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("got %q, want []", data)
	}
}

func TestFlatten_RaggedRecords(t *testing.T) {
	table, err := Flatten([]models.ElementRecord{fullRecord(), bareRecord()})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	col := map[string]int{}
	for i, h := range table.Header {
		col[h] = i
	}

	for _, name := range []string{
		"element_index",
		"main_div.tag",
		"main_div.styles.position",
		"image.src",
		"image.computed_styles.cursor",
		"pointer.computed_styles.left",
	} {
		if _, ok := col[name]; !ok {
			t.Errorf("header missing %q: %v", name, table.Header)
		}
	}
	if table.Header[0] != "element_index" {
		t.Errorf("first column = %q, want element_index", table.Header[0])
	}

	full, bare := table.Rows[0], table.Rows[1]
	if full[col["image.src"]] != "/a.png" || full[col["pointer.computed_styles.left"]] != "10px" {
		t.Errorf("full row = %v", full)
	}
	for _, name := range []string{"image.src", "image.computed_styles.cursor", "pointer.data-testid"} {
		if bare[col[name]] != "" {
			t.Errorf("bare row %s = %q, want empty", name, bare[col[name]])
		}
	}
	if bare[col["element_index"]] != "2" || bare[col["main_div.styles.display"]] != "block" {
		t.Errorf("bare row = %v", bare)
	}
	// Null attributes are empty cells.
	if bare[col["main_div.classes"]] != "" {
		t.Errorf("null classes cell = %q", bare[col["main_div.classes"]])
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Header) {
			t.Errorf("row %d has %d cells, header has %d", i, len(row), len(table.Header))
		}
	}
}

func TestFlatten_ColumnsFirstSeenOrder(t *testing.T) {
	// The bare record comes first, so optional-block columns follow its columns.
	table, err := Flatten([]models.ElementRecord{bareRecord(), fullRecord()})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	firstImage, lastMain := -1, -1
	for i, h := range table.Header {
		if strings.HasPrefix(h, "main_div.") {
			lastMain = i
		}
		if strings.HasPrefix(h, "image.") && firstImage < 0 {
			firstImage = i
		}
	}
	if firstImage < lastMain {
		t.Errorf("image columns (%d) should follow main columns (%d): %v", firstImage, lastMain, table.Header)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []models.ElementRecord{fullRecord(), bareRecord()}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d lines, want header + 2", len(rows))
	}

	var empty bytes.Buffer
	if err := WriteCSV(&empty, nil); err != nil {
		t.Fatalf("WriteCSV(nil): %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("empty collection wrote %q", empty.String())
	}
}
