// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package importer copies the rows of an external table into a collection.
//
// Rows are read once from a Source and written one by one through a Sink,
// normally a hyperbase.CollectionClient, so every record goes through the same
// schema validation and insert endpoint as interactive input. Nothing is kept
// locally. Rows the server or the validator rejects are collected in the
// Report; any other failure stops the import.
package importer

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/schema"
)

// DefaultConcurrency bounds in-flight inserts when Options.Concurrency is unset.
const DefaultConcurrency = 4

// Column describes one column of a source table.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Source reads the rows of a table.
type Source interface {
	Columns(ctx context.Context, table string) ([]Column, error)
	// Rows calls fn for every row, keyed by column name, until fn returns an error.
	Rows(ctx context.Context, table string, columns []string, fn func(row map[string]any) error) error
}

// Sink receives validated records.
type Sink interface {
	InsertOne(ctx context.Context, record map[string]any) (map[string]any, error)
	Schema() schema.Schema
}

// Options tunes an import.
type Options struct {
	// Rename maps source column names to collection field names.
	Rename map[string]string
	// Concurrency bounds in-flight inserts.
	Concurrency int
	// Limit stops after this many rows; 0 means all.
	Limit  int
	Logger *slog.Logger
	// Progress, when set, is called after every finished row.
	Progress func(Progress)
}

// Progress is a running count of finished rows.
type Progress struct {
	Done     int
	Inserted int
	Rejected int
}

// Reject is a row that could not be inserted.
type Reject struct {
	Row    int            `json:"row"`
	Record map[string]any `json:"record"`
	Error  string         `json:"error"`
}

// Report summarizes a finished import.
type Report struct {
	Read     int
	Inserted int
	Rejects  []Reject
	// Skipped lists source columns with no matching collection field.
	Skipped []string
}

// Importer moves rows from a Source into a Sink.
type Importer struct {
	source Source
	sink   Sink
	opts   Options
	log    *slog.Logger
}

func New(source Source, sink Sink, opts Options) *Importer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Importer{source: source, sink: sink, opts: opts, log: log}
}

// Run imports table. The returned Report is valid even when err is not nil.
func (im *Importer) Run(ctx context.Context, table string) (*Report, error) {
	report := &Report{}

	cols, err := im.source.Columns(ctx, table)
	if err != nil {
		return report, fmt.Errorf("read columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return report, fmt.Errorf("table %s not found or has no columns", table)
	}
	fields := im.sink.Schema()
	var selected []string
	mapping := map[string]string{}
	for _, c := range cols {
		name := c.Name
		if renamed, ok := im.opts.Rename[c.Name]; ok {
			name = renamed
		}
		if _, ok := fields[name]; !ok {
			report.Skipped = append(report.Skipped, c.Name)
			continue
		}
		selected = append(selected, c.Name)
		mapping[c.Name] = name
	}
	if len(report.Skipped) > 0 {
		im.log.Warn("source columns without a matching field are skipped", "columns", report.Skipped)
	}
	if len(selected) == 0 {
		return report, fmt.Errorf("no column of %s matches a field of the collection", table)
	}

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(row int, record map[string]any, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if err != nil {
			report.Rejects = append(report.Rejects, Reject{Row: row, Record: record, Error: err.Error()})
		} else {
			report.Inserted++
		}
		if im.opts.Progress != nil {
			im.opts.Progress(Progress{Done: done, Inserted: report.Inserted, Rejected: len(report.Rejects)})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Concurrency)

	errLimit := errors.New("row limit reached")
	read := 0
	err = im.source.Rows(gctx, table, selected, func(row map[string]any) error {
		if im.opts.Limit > 0 && read >= im.opts.Limit {
			return errLimit
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		read++
		n := read
		record := make(map[string]any, len(row))
		for col, v := range row {
			record[mapping[col]] = Normalize(v)
		}
		g.Go(func() error {
			_, err := im.sink.InsertOne(gctx, record)
			if err != nil && !rejectable(err) {
				return fmt.Errorf("row %d: %w", n, err)
			}
			finish(n, record, err)
			return nil
		})
		return nil
	})
	werr := g.Wait()
	report.Read = read
	sort.Slice(report.Rejects, func(i, j int) bool { return report.Rejects[i].Row < report.Rejects[j].Row })

	if werr != nil {
		return report, werr
	}
	if err != nil && !errors.Is(err, errLimit) {
		return report, fmt.Errorf("read %s: %w", table, err)
	}
	im.log.Debug("import finished", "table", table, "read", report.Read, "inserted", report.Inserted, "rejected", len(report.Rejects))
	return report, nil
}

// rejectable reports whether err concerns only the row at hand.
func rejectable(err error) bool {
	switch herrors.KindOf(err) {
	case herrors.KindValidation:
		return true
	case herrors.KindService:
		var se *herrors.ServiceError
		return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != 401 && se.StatusCode != 403
	}
	return false
}

// Normalize turns driver values into the plain Go values the schema validator
// understands.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(x).String()
	case uuid.UUID:
		return x.String()
	case driver.Valuer:
		out, err := x.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		if _, nested := out.(driver.Valuer); nested {
			return out
		}
		return Normalize(out)
	}
	return v
}

// WriteRejects writes one JSON object per rejected row.
func WriteRejects(w io.Writer, rejects []Reject) error {
	enc := json.NewEncoder(w)
	for _, r := range rejects {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
