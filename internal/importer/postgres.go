// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hyperbase/cli/internal/schema"
)

// PGSource reads tables from a PostgreSQL database.
// Column metadata is cached per table name.
type PGSource struct {
	pool  *pgxpool.Pool
	cache map[string][]Column
	mu    sync.RWMutex
}

// NewPGSource creates a PGSource over pool. The caller owns the pool.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool, cache: make(map[string][]Column)}
}

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Columns returns the columns of table in ordinal order.
// The table name may be "table" or "schema.table".
func (s *PGSource) Columns(ctx context.Context, table string) ([]Column, error) {
	s.mu.RLock()
	if cols, ok := s.cache[table]; ok {
		s.mu.RUnlock()
		return cols, nil
	}
	s.mu.RUnlock()

	ns, name := splitTable(table)
	rows, err := s.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, ns, name)
	if err != nil {
		return nil, err
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		err := row.Scan(&c.Name, &c.DataType, &c.Nullable)
		return c, err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[table] = cols
	s.mu.Unlock()
	return cols, nil
}

// Rows streams the selected columns of table to fn.
func (s *PGSource) Rows(ctx context.Context, table string, columns []string, fn func(map[string]any) error) error {
	ns, name := splitTable(table)
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), pgx.Identifier{ns, name}.Sanitize())

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}
		fields := rows.FieldDescriptions()
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[fields[i].Name] = v
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// splitTable splits "schema.table"; the schema defaults to public.
func splitTable(table string) (string, string) {
	if ns, name, ok := strings.Cut(table, "."); ok {
		return ns, name
	}
	return "public", table
}

// KindFor maps a PostgreSQL data type, as reported by information_schema,
// to the closest collection field kind.
func KindFor(dataType string) schema.Kind {
	switch strings.ToLower(dataType) {
	case "boolean":
		return schema.KindBoolean
	case "smallint":
		return schema.KindSmallint
	case "integer":
		return schema.KindInt
	case "bigint":
		return schema.KindBigint
	case "real":
		return schema.KindFloat
	case "double precision":
		return schema.KindDouble
	case "numeric", "decimal", "money":
		return schema.KindDecimal
	case "bytea":
		return schema.KindBinary
	case "uuid":
		return schema.KindUUID
	case "date":
		return schema.KindDate
	case "time without time zone", "time with time zone":
		return schema.KindTime
	case "timestamp without time zone", "timestamp with time zone":
		return schema.KindTimestamp
	case "json", "jsonb":
		return schema.KindJSON
	}
	return schema.KindString
}

// SchemaFor derives a collection schema from table columns. NOT NULL columns
// become required fields. Columns named in skip are left out.
func SchemaFor(columns []Column, skip ...string) schema.Schema {
	out := make(schema.Schema, len(columns))
	for _, c := range columns {
		if slices.Contains(skip, c.Name) {
			continue
		}
		out[c.Name] = schema.Field{Kind: KindFor(c.DataType), Required: !c.Nullable}
	}
	return out
}
