// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/importer"
	"hyperbase/cli/internal/xdg"
)

var (
	importTable       string
	importMap         []string
	importConcurrency int
	importLimit       int
)

var recordsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the rows of a Postgres table into a collection",
	Long: `Import the rows of a Postgres table into a collection.

Each row is inserted like 'records insert' would: it is checked against the
collection schema and sent on its own. Columns are matched to fields by name;
--map renames a column (column=field). Columns without a matching field are
skipped. Rows the server or the schema rejects are written to a JSON lines file
in the state directory and the import carries on; any other failure stops it.

The source database comes from --dsn, HYPERBASE_IMPORT_DSN or 'hyperbase connect'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importTable == "" {
			return errors.New("--table is required")
		}
		rename, err := parseRename(importMap)
		if err != nil {
			return err
		}
		dsn, err := importDSN()
		if err != nil {
			return err
		}
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := importer.Open(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect to the import database: %w", err)
		}
		defer pool.Close()

		concurrency := importConcurrency
		if concurrency <= 0 {
			concurrency = settings.ImportConcurrency
		}
		progress := startProgressArea()
		im := importer.New(importer.NewPGSource(pool), c, importer.Options{
			Rename:      rename,
			Concurrency: concurrency,
			Limit:       importLimit,
			Logger:      logger,
			Progress: func(p importer.Progress) {
				progress.Update("%s Importing %s: %d inserted, %d rejected",
					spinnerFrames[p.Done%len(spinnerFrames)], importTable, p.Inserted, p.Rejected)
			},
		})
		report, runErr := im.Run(ctx, importTable)
		progress.Stop()

		if len(report.Skipped) > 0 {
			pterm.Warning.Printfln("Skipped columns without a matching field: %s", strings.Join(report.Skipped, ", "))
		}
		if len(report.Rejects) > 0 {
			path, err := saveRejects(c.ID(), report.Rejects)
			if err != nil {
				logger.Warn("could not save rejected rows", "error", err)
			} else {
				pterm.Warning.Printfln("%d rows rejected; details in %s", len(report.Rejects), path)
			}
		}
		if runErr != nil {
			pterm.Error.Printfln("Import stopped after %d rows (%d inserted)", report.Read, report.Inserted)
			return runErr
		}
		pterm.Success.Printfln("Imported %d of %d rows from %s", report.Inserted, report.Read, importTable)
		return nil
	},
}

func init() {
	f := recordsImportCmd.Flags()
	f.StringVar(&importTable, "table", "", "source table ([schema.]table)")
	f.StringVar(&importDSNFlag, "dsn", "", "Postgres connection string (default: the saved one)")
	f.StringSliceVar(&importMap, "map", nil, "rename a column as column=field (repeatable)")
	f.IntVar(&importConcurrency, "concurrency", 0, "parallel inserts (default from config)")
	f.IntVar(&importLimit, "limit", 0, "stop after this many rows")
}

func parseRename(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		col, field, ok := strings.Cut(p, "=")
		if !ok || col == "" || field == "" {
			return nil, fmt.Errorf("invalid --map %q, want column=field", p)
		}
		out[col] = field
	}
	return out, nil
}

// saveRejects writes rejected rows to <state dir>/imports.
func saveRejects(collectionID string, rejects []importer.Reject) (string, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "imports")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.jsonl", collectionID, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if err := importer.WriteRejects(f, rejects); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
