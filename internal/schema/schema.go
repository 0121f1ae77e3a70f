// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema validates and coerces loosely-typed records against a collection's
// field schema before they are sent to the server.
//
// Input usually comes from forms, CLI flags or foreign databases, so values arrive as
// strings, generic JSON numbers or driver-specific Go types. Validate turns such a
// record into the storage representation the server expects for each field kind, or
// fails fast with a *errors.ValidationError naming the first offending field.
package schema

import "sort"

// Kind is the storage type of a schema field.
type Kind string

const (
	KindBoolean   Kind = "boolean"
	KindTinyint   Kind = "tinyint"
	KindSmallint  Kind = "smallint"
	KindInt       Kind = "int"
	KindBigint    Kind = "bigint"
	KindVarint    Kind = "varint"
	KindFloat     Kind = "float"
	KindDouble    Kind = "double"
	KindDecimal   Kind = "decimal"
	KindString    Kind = "string"
	KindBinary    Kind = "binary"
	KindUUID      Kind = "uuid"
	KindDate      Kind = "date"
	KindTime      Kind = "time"
	KindTimestamp Kind = "timestamp"
	KindJSON      Kind = "json"
)

// Kinds lists every supported kind in declaration order.
var Kinds = []Kind{
	KindBoolean, KindTinyint, KindSmallint, KindInt, KindBigint, KindVarint,
	KindFloat, KindDouble, KindDecimal, KindString, KindBinary, KindUUID,
	KindDate, KindTime, KindTimestamp, KindJSON,
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) numeric() bool {
	switch k {
	case KindTinyint, KindSmallint, KindInt, KindBigint, KindFloat, KindDouble:
		return true
	}
	return false
}

func (k Kind) integer() bool {
	switch k {
	case KindTinyint, KindSmallint, KindInt, KindBigint:
		return true
	}
	return false
}

// Field describes one column of a collection.
type Field struct {
	Kind       Kind `json:"kind" yaml:"kind"`
	Required   bool `json:"required" yaml:"required"`
	Indexed    bool `json:"indexed" yaml:"indexed"`
	Unique     bool `json:"unique" yaml:"unique"`
	AuthColumn bool `json:"auth_column" yaml:"auth_column"`
	Hidden     bool `json:"hidden" yaml:"hidden"`
}

// Mandatory reports whether a record must carry a value for the field.
func (f Field) Mandatory() bool {
	return f.Required || f.Indexed || f.AuthColumn
}

// Schema maps field names to their definitions.
type Schema map[string]Field

// Names returns the field names in lexical order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
