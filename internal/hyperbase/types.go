// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"io"

	"hyperbase/cli/internal/backend"
	"hyperbase/cli/internal/schema"
)

// Admin is the profile of an administrator account.
type Admin struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Email     string `json:"email"`
}

// RegistrationInfo tells whether the server accepts new administrators.
type RegistrationInfo struct {
	IsEnabled bool `json:"is_enabled"`
}

// UserCredentials signs a user in through a collection's auth columns.
type UserCredentials struct {
	TokenID      string         `json:"token_id"`
	Token        string         `json:"token"`
	CollectionID string         `json:"collection_id"`
	Data         map[string]any `json:"data,omitempty"`
}

type Project struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	AdminID   string `json:"admin_id"`
	Name      string `json:"name"`
}

type Collection struct {
	ID              string        `json:"id"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
	ProjectID       string        `json:"project_id"`
	Name            string        `json:"name"`
	SchemaFields    schema.Schema `json:"schema_fields"`
	OptAuthColumnID bool          `json:"opt_auth_column_id"`
	OptTTL          *int64        `json:"opt_ttl,omitempty"`
}

// CollectionUpdate carries the mutable attributes of a collection.
// Nil fields are left unchanged.
type CollectionUpdate struct {
	Name            *string       `json:"name,omitempty"`
	SchemaFields    schema.Schema `json:"schema_fields,omitempty"`
	OptAuthColumnID *bool         `json:"opt_auth_column_id,omitempty"`
	OptTTL          *int64        `json:"opt_ttl,omitempty"`
}

type Bucket struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	OptTTL    *int64 `json:"opt_ttl,omitempty"`
}

type BucketUpdate struct {
	Name   *string `json:"name,omitempty"`
	OptTTL *int64  `json:"opt_ttl,omitempty"`
}

type File struct {
	ID          string `json:"id"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	BucketID    string `json:"bucket_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// FileQuery pages through a bucket's files.
type FileQuery struct {
	BeforeID string
	Limit    int
}

type FilePage struct {
	Files      []File
	Pagination backend.Pagination
}

type Token struct {
	ID             string  `json:"id"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	ProjectID      string  `json:"project_id"`
	AdminID        string  `json:"admin_id"`
	Name           string  `json:"name"`
	Token          string  `json:"token"`
	AllowAnonymous bool    `json:"allow_anonymous"`
	ExpiredAt      *string `json:"expired_at,omitempty"`
}

type TokenCreate struct {
	Name           string  `json:"name"`
	AllowAnonymous bool    `json:"allow_anonymous"`
	ExpiredAt      *string `json:"expired_at,omitempty"`
}

type TokenUpdate struct {
	Name           *string `json:"name,omitempty"`
	AllowAnonymous *bool   `json:"allow_anonymous,omitempty"`
	ExpiredAt      *string `json:"expired_at,omitempty"`
}

// Permission scopes a token rule to all records, those the caller created, or none.
type Permission string

const (
	PermissionAll      Permission = "all"
	PermissionSelfMade Permission = "self_made"
	PermissionNone     Permission = "none"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionAll, PermissionSelfMade, PermissionNone:
		return true
	}
	return false
}

// Rule is the permission set shared by collection and bucket rules.
type Rule struct {
	FindOne   Permission `json:"find_one"`
	FindMany  Permission `json:"find_many"`
	InsertOne bool       `json:"insert_one"`
	UpdateOne Permission `json:"update_one"`
	DeleteOne Permission `json:"delete_one"`
}

// RuleNames lists the rule columns in display order.
var RuleNames = []string{"find_one", "find_many", "insert_one", "update_one", "delete_one"}

type CollectionRule struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	ProjectID    string `json:"project_id"`
	TokenID      string `json:"token_id"`
	CollectionID string `json:"collection_id"`
	Rule
}

type BucketRule struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	ProjectID string `json:"project_id"`
	TokenID   string `json:"token_id"`
	BucketID  string `json:"bucket_id"`
	Rule
}

// LogKind is the severity of a project log entry.
type LogKind string

const (
	LogError LogKind = "error"
	LogWarn  LogKind = "warn"
	LogInfo  LogKind = "info"
	LogDebug LogKind = "debug"
	LogTrace LogKind = "trace"
)

type Log struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	Kind      LogKind `json:"kind"`
	Message   string  `json:"message"`
}

// LogQuery pages backwards through a project's logs.
type LogQuery struct {
	BeforeID string
	Limit    int
}

type LogPage struct {
	Logs       []Log
	Pagination backend.Pagination
}

// Filter is one node of a record filter tree. Leaf nodes carry Field and
// Value; "and"/"or" nodes carry Children.
type Filter struct {
	Field    string   `json:"field,omitempty"`
	Op       string   `json:"op"`
	Value    any      `json:"value,omitempty"`
	Children []Filter `json:"children,omitempty"`
}

// Order sorts records by Field; Kind is "asc" or "desc".
type Order struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

// Query selects records. Zero fields are omitted from the request body.
type Query struct {
	Fields  []string `json:"fields,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
	Groups  []string `json:"groups,omitempty"`
	Orders  []Order  `json:"orders,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Record is a collection record as returned by the server.
type Record = map[string]any

type RecordPage struct {
	Records    []Record
	Pagination backend.Pagination
}

// FileUpload describes a file to store in a bucket.
type FileUpload struct {
	FileName    string
	ContentType string
	Content     io.Reader
	// Name overrides the stored file name when set.
	Name string
}
