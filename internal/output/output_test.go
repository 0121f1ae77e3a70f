package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1000, "1000 B"},
		{1500, "1.5 KB"},
		{2_000_000, "2 MB"},
		{1_234_567, "1.235 MB"},
		{3_250_000_000, "3.25 GB"},
		{5_000_000_000_000, "5 TB"},
		{7_000_000_000_000_000, "7000 TB"},
	}
	for _, tt := range tests {
		if got := FileSize(tt.size); got != tt.want {
			t.Errorf("FileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestRuleTitle(t *testing.T) {
	tests := map[string]string{
		"find_one":   "Find One",
		"insert_one": "Insert One",
		"find_many":  "Find Many",
		"delete_one": "Delete One",
		"single":     "Single",
	}
	for in, want := range tests {
		if got := RuleTitle(in); got != want {
			t.Errorf("RuleTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", " yaml ", ""} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) error = nil")
	}
}

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestRenderJSONAndYAML(t *testing.T) {
	v := []item{{ID: "1", Name: "alpha"}}

	var buf bytes.Buffer
	if err := Render(&buf, FormatJSON, v, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"name": "alpha"`) {
		t.Errorf("json = %s", buf.String())
	}

	buf.Reset()
	if err := Render(&buf, FormatYAML, v, nil); err != nil {
		t.Fatal(err)
	}
	if want := "- id: \"1\"\n  name: alpha\n"; buf.String() != want {
		t.Errorf("yaml = %q, want %q", buf.String(), want)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, FormatTable, nil, func() Table {
		return Table{Header: []string{"ID", "NAME"}, Rows: [][]string{{"1", "alpha"}}}
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "alpha") {
		t.Errorf("table = %q", out)
	}
}

func TestValue(t *testing.T) {
	if got := Value(map[string]any{"a": 1}); got != `{"a":1}` {
		t.Errorf("Value(map) = %q", got)
	}
	if got := Value(float64(12)); got != "12" {
		t.Errorf("Value(12) = %q", got)
	}
	if got := Value(nil); got != "" {
		t.Errorf("Value(nil) = %q", got)
	}
}
