// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/importer"
	"hyperbase/cli/internal/output"
	"hyperbase/cli/internal/schema"
)

var (
	collSchemaFile string
	collFromTable  string
	collSkip       []string
	collName       string
	collAuthColumn bool
	collTTL        int64
)

var collectionsCmd = &cobra.Command{
	Use:     "collections",
	Aliases: []string{"collection"},
	Short:   "Manage the collections of a project",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		cols, err := p.Collections(cmd.Context())
		if err != nil {
			return err
		}
		return render(cols, func() output.Table { return collectionTable(cols...) })
	},
}

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Long: `Create a collection from a schema file or from the columns of a Postgres table.

The schema file is JSON or YAML mapping field names to their definition:

  name:
    kind: string
    required: true
  age:
    kind: int

With --from-table, the columns of the table (see 'hyperbase connect') become the
fields; NOT NULL columns become required.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fields schema.Schema
		var err error
		switch {
		case collSchemaFile != "" && collFromTable != "":
			return errors.New("use either --schema or --from-table")
		case collSchemaFile != "":
			fields, err = readSchemaFile(collSchemaFile)
		case collFromTable != "":
			fields, err = schemaFromTable(cmd, collFromTable, collSkip)
		default:
			return errors.New("--schema or --from-table is required")
		}
		if err != nil {
			return err
		}

		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		in := hyperbase.CollectionCreate{Name: args[0], SchemaFields: fields, OptAuthColumnID: collAuthColumn}
		if cmd.Flags().Changed("ttl") {
			in.OptTTL = &collTTL
		}
		c, err := p.CreateCollection(cmd.Context(), in)
		if err != nil {
			return err
		}
		col := c.Collection()
		return render(col, func() output.Table { return schemaTable(col) })
	},
}

var collectionsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a collection and its schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		c, err := p.Collection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		col := c.Collection()
		return render(col, func() output.Table { return schemaTable(col) })
	},
}

var collectionsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename a collection or replace its schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in hyperbase.CollectionUpdate
		if cmd.Flags().Changed("name") {
			in.Name = &collName
		}
		if collSchemaFile != "" {
			fields, err := readSchemaFile(collSchemaFile)
			if err != nil {
				return err
			}
			in.SchemaFields = fields
		}
		if cmd.Flags().Changed("auth-column") {
			in.OptAuthColumnID = &collAuthColumn
		}
		if cmd.Flags().Changed("ttl") {
			in.OptTTL = &collTTL
		}

		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		c, err := p.Collection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := c.Update(cmd.Context(), in); err != nil {
			return err
		}
		col := c.Collection()
		return render(col, func() output.Table { return schemaTable(col) })
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a collection with all its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		c, err := p.Collection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete collection %q and all its records?", c.Collection().Name)); err != nil {
			return err
		}
		if err := c.Delete(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Printfln("Collection %s deleted", c.ID())
		return nil
	},
}

func init() {
	addProjectFlag(collectionsCmd)
	for _, c := range []*cobra.Command{collectionsCreateCmd, collectionsUpdateCmd} {
		c.Flags().StringVar(&collSchemaFile, "schema", "", "schema file (JSON or YAML)")
		c.Flags().BoolVar(&collAuthColumn, "auth-column", false, "let records sign in through their auth columns")
		c.Flags().Int64Var(&collTTL, "ttl", 0, "record time-to-live in seconds")
	}
	collectionsCreateCmd.Flags().StringVar(&collFromTable, "from-table", "", "derive the schema from a Postgres table ([schema.]table)")
	collectionsCreateCmd.Flags().StringSliceVar(&collSkip, "skip", nil, "table columns to leave out with --from-table")
	collectionsCreateCmd.Flags().StringVar(&importDSNFlag, "dsn", "", "Postgres connection string (default: the saved one)")
	collectionsUpdateCmd.Flags().StringVar(&collName, "name", "", "new collection name")
	addYesFlag(collectionsDeleteCmd)

	collectionsCmd.AddCommand(collectionsListCmd, collectionsCreateCmd, collectionsGetCmd, collectionsUpdateCmd, collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
}

// readSchemaFile parses a JSON or YAML schema file.
func readSchemaFile(path string) (schema.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fields schema.Schema
	if err := yaml.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s defines no fields", path)
	}
	for _, name := range fields.Names() {
		if !fields[name].Kind.Valid() {
			return nil, fmt.Errorf("%s: field %q has unknown kind %q", path, name, fields[name].Kind)
		}
	}
	return fields, nil
}

func schemaFromTable(cmd *cobra.Command, table string, skip []string) (schema.Schema, error) {
	dsn, err := importDSN()
	if err != nil {
		return nil, err
	}
	pool, err := importer.Open(cmd.Context(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to the import database: %w", err)
	}
	defer pool.Close()

	cols, err := importer.NewPGSource(pool).Columns(cmd.Context(), table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", table)
	}
	return importer.SchemaFor(cols, skip...), nil
}

func collectionTable(cols ...hyperbase.Collection) output.Table {
	t := output.Table{Header: []string{"ID", "NAME", "FIELDS", "AUTH", "TTL"}}
	for _, c := range cols {
		ttl := ""
		if c.OptTTL != nil {
			ttl = strconv.FormatInt(*c.OptTTL, 10) + "s"
		}
		t.Rows = append(t.Rows, []string{c.ID, c.Name, strconv.Itoa(len(c.SchemaFields)), strconv.FormatBool(c.OptAuthColumnID), ttl})
	}
	return t
}

func schemaTable(c hyperbase.Collection) output.Table {
	t := output.Table{Header: []string{"FIELD", "KIND", "REQUIRED", "INDEXED", "UNIQUE", "AUTH", "HIDDEN"}}
	for _, name := range c.SchemaFields.Names() {
		f := c.SchemaFields[name]
		t.Rows = append(t.Rows, []string{
			name, string(f.Kind),
			mark(f.Required), mark(f.Indexed), mark(f.Unique), mark(f.AuthColumn), mark(f.Hidden),
		})
	}
	return t
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return ""
}
