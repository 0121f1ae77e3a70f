// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package output renders command results as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// Format selects how results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// Table is the tabular view of a result.
type Table struct {
	Header []string
	Rows   [][]string
}

// Render writes value to w. For FormatTable the table func builds the view;
// when it is nil the value is printed as YAML instead.
func Render(w io.Writer, format Format, value any, table func() Table) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case FormatYAML:
		return renderYAML(w, value)
	}
	if table == nil {
		return renderYAML(w, value)
	}
	t := table()
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, pterm.Gray("(none)"))
		return err
	}
	data := pterm.TableData{t.Header}
	data = append(data, t.Rows...)
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// renderYAML goes through JSON first so field names follow the json tags.
func renderYAML(w io.Writer, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal(b, &plain); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plain); err != nil {
		return err
	}
	return enc.Close()
}

// RuleTitle turns a rule name such as "find_one" into "Find One".
func RuleTitle(rule string) string {
	parts := strings.Split(rule, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FileSize formats a byte count with decimal units and at most three decimals.
func FileSize(size int64) string {
	s := float64(size)
	i := 0
	for i < len(sizeUnits)-1 && s/1000 > 1 {
		s /= 1000
		i++
	}
	decimals := 3
	for x := 0; x < 3; x++ {
		scaled := s * math.Pow10(x)
		if scaled == math.Floor(scaled) {
			decimals = x
			break
		}
	}
	return strconv.FormatFloat(s, 'f', decimals, 64) + " " + sizeUnits[i]
}

// Value stringifies a record value for a table cell.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
