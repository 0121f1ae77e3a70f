// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package schema

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	herrors "hyperbase/cli/internal/errors"
)

// Server-managed and synthetic record keys.
const (
	FieldID        = "_id"
	FieldUpdatedAt = "_updated_at"
	FieldCreatedBy = "_created_by"
)

// NullSentinel marks an explicit null for string fields, where the empty string is a value.
const NullSentinel = `\null`

// Validate coerces record against s and returns the payload to send.
// The caller's map is left untouched. Validation stops at the first failing field,
// visiting fields in lexical order.
func Validate(record map[string]any, s Schema) (map[string]any, error) {
	data := make(map[string]any, len(record))
	for k, v := range record {
		data[k] = v
	}
	delete(data, FieldID)
	delete(data, FieldUpdatedAt)

	for _, name := range s.Names() {
		field := s[name]
		if !field.Mandatory() || truthy(data[name]) {
			continue
		}
		if field.Kind != KindBoolean {
			return nil, herrors.MissingField(name)
		}
		data[name] = false
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		if name == FieldCreatedBy {
			continue
		}
		field, ok := s[name]
		if !ok {
			return nil, &herrors.ValidationError{Field: name, Reason: herrors.ReasonUnknownField}
		}
		if !field.Kind.Valid() {
			return nil, &herrors.ValidationError{Field: name, Reason: herrors.ReasonUnknownKind}
		}

		value := data[name]
		if value == nil && field.Kind != KindBoolean {
			continue
		}
		if str, isString := value.(string); isString {
			if str == "" && !field.Required && field.Kind != KindString {
				data[name] = nil
				continue
			}
			if field.Kind == KindString && str == NullSentinel {
				if field.Mandatory() {
					return nil, herrors.MissingField(name)
				}
				data[name] = nil
				continue
			}
		}

		coerced, err := coerce(name, field.Kind, value)
		if err != nil {
			return nil, err
		}
		// "0" or "  " pass the mandatory pass as text but coerce to a falsy number.
		if field.Mandatory() && field.Kind != KindBoolean && !truthy(coerced) {
			return nil, herrors.MissingField(name)
		}
		data[name] = coerced
	}
	return data, nil
}

func coerce(name string, kind Kind, value any) (any, error) {
	switch {
	case kind == KindBoolean:
		if _, ok := value.(bool); ok {
			return value, nil
		}
		return truthy(value), nil
	case kind.numeric():
		n, ok := toNumber(value, kind.integer())
		if !ok {
			return nil, herrors.TypeMismatch(name)
		}
		return n, nil
	case kind == KindVarint, kind == KindDecimal, kind == KindUUID, kind == KindDate, kind == KindTime:
		if _, ok := value.(string); ok {
			return value, nil
		}
		return stringify(value, kind), nil
	case kind == KindString:
		if _, ok := value.(string); ok || !truthy(value) {
			return value, nil
		}
		return stringify(value, kind), nil
	case kind == KindJSON:
		if _, ok := value.(string); ok {
			return value, nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, herrors.TypeMismatch(name)
		}
		return string(b), nil
	case kind == KindBinary:
		return value, nil
	case kind == KindTimestamp:
		if t, ok := value.(time.Time); ok {
			return FormatInstant(t), nil
		}
		text, ok := value.(string)
		if !ok {
			text = stringify(value, kind)
		}
		instant, err := ToInstant(text)
		if err != nil {
			return nil, herrors.TypeMismatch(name)
		}
		return instant, nil
	}
	return nil, &herrors.ValidationError{Field: name, Reason: herrors.ReasonUnknownKind}
}

// truthy mirrors the loose truthiness of form input: nil, false, zero numbers,
// NaN and the empty string are falsy; everything else is truthy.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case int:
		return v != 0
	case int8:
		return v != 0
	case int16:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case uint:
		return v != 0
	case uint8:
		return v != 0
	case uint16:
		return v != 0
	case uint32:
		return v != 0
	case uint64:
		return v != 0
	}
	return true
}

// toNumber converts value into a JSON-representable number.
func toNumber(value any, integer bool) (any, bool) {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v, true
	case float32:
		return v, finite(float64(v))
	case float64:
		return v, finite(v)
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return nil, false
		}
		return v, true
	case bool:
		if v {
			return int64(1), true
		}
		return int64(0), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return int64(0), true
		}
		if integer {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, true
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return nil, false
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), true
		}
		return f, true
	}
	return nil, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// stringify renders value the way a script runtime would when asked for its text form.
func stringify(value any, kind Kind) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		b, _ := json.Marshal(v)
		return string(b)
	case time.Time:
		switch kind {
		case KindDate:
			return v.Format(time.DateOnly)
		case KindTime:
			return v.Format(time.TimeOnly)
		}
		return v.Format(time.RFC3339Nano)
	case interface{ String() string }:
		return v.String()
	}
	b, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(b)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
