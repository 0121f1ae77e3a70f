package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/importer"
)

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{
		"name=ada",
		"age=36",
		"active=true",
		"tags=[\"a\",\"b\"]",
		"note=",
		"expr=1 + 1",
		"url=http://x?a=b",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"name":   "ada",
		"age":    json.Number("36"),
		"active": true,
		"tags":   []any{"a", "b"},
		"note":   "",
		"expr":   "1 + 1",
		"url":    "http://x?a=b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseAssignments() = %#v, want %#v", got, want)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseAssignments([]string{bad}); err == nil {
			t.Errorf("parseAssignments(%q) error = nil", bad)
		}
	}
}

func TestRecordInputMergesFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	if err := os.WriteFile(path, []byte(`{"name":"ada","age":36}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := recordInput(path, []string{"age=37"})
	if err != nil {
		t.Fatal(err)
	}
	if got["name"] != "ada" || got["age"] != json.Number("37") {
		t.Errorf("recordInput() = %#v", got)
	}
	if _, err := recordInput("", nil); err == nil {
		t.Error("recordInput(empty) error = nil")
	}
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		in   string
		want hyperbase.Filter
	}{
		{"age >= 18", hyperbase.Filter{Field: "age", Op: ">=", Value: "18"}},
		{"name LIKE %ada lovelace%", hyperbase.Filter{Field: "name", Op: "LIKE", Value: "%ada lovelace%"}},
		{"deleted_at IS_NULL", hyperbase.Filter{Field: "deleted_at", Op: "IS_NULL"}},
	}
	for _, tt := range tests {
		got, err := parseWhere(tt.in)
		if err != nil {
			t.Fatalf("parseWhere(%q) error = %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseWhere(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
	if _, err := parseWhere("age"); err == nil {
		t.Error("parseWhere(age) error = nil")
	}
}

func TestParseOrder(t *testing.T) {
	got, err := parseOrder("age:DESC")
	if err != nil || got != (hyperbase.Order{Field: "age", Kind: "desc"}) {
		t.Errorf("parseOrder() = %v, %v", got, err)
	}
	got, err = parseOrder("name")
	if err != nil || got != (hyperbase.Order{Field: "name", Kind: "asc"}) {
		t.Errorf("parseOrder() = %v, %v", got, err)
	}
	if _, err := parseOrder("name:up"); err == nil {
		t.Error("parseOrder(name:up) error = nil")
	}
}

func TestBuildQuery(t *testing.T) {
	q, err := buildQuery("", []string{"name"}, []string{"age > 3"}, nil, []string{"name"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := &hyperbase.Query{
		Fields:  []string{"name"},
		Filters: []hyperbase.Filter{{Field: "age", Op: ">", Value: "3"}},
		Orders:  []hyperbase.Order{{Field: "name", Kind: "asc"}},
		Limit:   10,
	}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("buildQuery() = %#v, want %#v", q, want)
	}
}

func TestParseRename(t *testing.T) {
	got, err := parseRename([]string{"full_name=name", "yrs=age"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, map[string]string{"full_name": "name", "yrs": "age"}) {
		t.Errorf("parseRename() = %v", got)
	}
	if _, err := parseRename([]string{"full_name"}); err == nil {
		t.Error("parseRename(no field) error = nil")
	}
}

func TestSaveRejects(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	path, err := saveRejects("0195f7c2-6f1e-7a8b-9c0d-1e2f3a4b5c6d", []importer.Reject{{Row: 1, Error: "bad"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"row":1,"record":null,"error":"bad"}`+"\n" {
		t.Errorf("rejects file = %q", b)
	}
}
