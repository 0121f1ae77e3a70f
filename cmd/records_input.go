// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"hyperbase/cli/internal/hyperbase"
)

// parseAssignments turns key=value pairs into a record. Values that parse as
// JSON keep their JSON type; anything else is taken as a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	record := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", pair)
		}
		record[key] = parseValue(raw)
	}
	return record, nil
}

func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// readRecordFile reads one JSON object.
func readRecordFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return record, nil
}

// recordInput merges --file and --set; --set wins on conflicts.
func recordInput(file string, pairs []string) (map[string]any, error) {
	record := map[string]any{}
	if file != "" {
		var err error
		if record, err = readRecordFile(file); err != nil {
			return nil, err
		}
	}
	set, err := parseAssignments(pairs)
	if err != nil {
		return nil, err
	}
	for k, v := range set {
		record[k] = v
	}
	if len(record) == 0 {
		return nil, fmt.Errorf("no values given; use --set key=value or --file record.json")
	}
	return record, nil
}

// parseWhere reads "field op value", e.g. "age >= 18" or "name LIKE %ada%".
func parseWhere(expr string) (hyperbase.Filter, error) {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return hyperbase.Filter{}, fmt.Errorf("invalid --where %q, want \"field op value\"", expr)
	}
	f := hyperbase.Filter{Field: fields[0], Op: fields[1]}
	if len(fields) > 2 {
		rest := strings.TrimSpace(expr)
		rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
		rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
		f.Value = rest
	}
	return f, nil
}

// parseOrder reads "field" or "field:asc|desc".
func parseOrder(expr string) (hyperbase.Order, error) {
	field, kind, ok := strings.Cut(expr, ":")
	if !ok {
		kind = "asc"
	}
	kind = strings.ToLower(kind)
	if field == "" || (kind != "asc" && kind != "desc") {
		return hyperbase.Order{}, fmt.Errorf("invalid --order %q, want field[:asc|desc]", expr)
	}
	return hyperbase.Order{Field: field, Kind: kind}, nil
}

// buildQuery assembles a query from a JSON file and the query flags.
func buildQuery(file string, fields, where, groups, orders []string, limit int) (*hyperbase.Query, error) {
	q := &hyperbase.Query{}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, q); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	q.Fields = append(q.Fields, fields...)
	q.Groups = append(q.Groups, groups...)
	for _, w := range where {
		f, err := parseWhere(w)
		if err != nil {
			return nil, err
		}
		q.Filters = append(q.Filters, f)
	}
	for _, o := range orders {
		order, err := parseOrder(o)
		if err != nil {
			return nil, err
		}
		q.Orders = append(q.Orders, order)
	}
	if limit > 0 {
		q.Limit = limit
	}
	return q, nil
}
