// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/output"
	"hyperbase/cli/internal/schema"
	"hyperbase/cli/internal/stream"
)

var (
	recSet     []string
	recFile    string
	recFields  []string
	recWhere   []string
	recGroups  []string
	recOrders  []string
	recLimit   int
	recQueryFn string
)

var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"record"},
	Short:   "Read and write the records of a collection",
	Long: `Read and write the records of a collection.

Values are given with --set key=value (repeatable) or --file record.json. A value
that parses as JSON keeps its JSON type, anything else is a string. Records are
checked against the collection schema before they are sent.`,
}

var recordsInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert a record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := recordInput(recFile, recSet)
		if err != nil {
			return err
		}
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}
		out, err := c.InsertOne(cmd.Context(), record)
		if err != nil {
			return err
		}
		return renderRecords(c, out)
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}
		out, err := c.FindOne(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return renderRecords(c, out)
	},
}

var recordsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := recordInput(recFile, recSet)
		if err != nil {
			return err
		}
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}
		out, err := c.UpdateOne(cmd.Context(), args[0], record)
		if err != nil {
			return err
		}
		return renderRecords(c, out)
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete record %s?", args[0])); err != nil {
			return err
		}
		if err := c.DeleteOne(cmd.Context(), args[0]); err != nil {
			return err
		}
		pterm.Success.Printfln("Record %s deleted", args[0])
		return nil
	},
}

var recordsFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Query records",
	Long: `Query records of a collection.

  hyperbase records find -p <project> -c <collection> \
    --where "age >= 18" --order created_at:desc --limit 20

--where takes "field op value" and may be repeated. --query reads a full query
(fields, filters, groups, orders, limit) from a JSON file; flags are added to it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery(recQueryFn, recFields, recWhere, recGroups, recOrders, recLimit)
		if err != nil {
			return err
		}
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}
		page, err := c.FindMany(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := renderRecords(c, page.Records...); err != nil {
			return err
		}
		if outFormat == output.FormatTable {
			pterm.Info.Printfln("%d of %d records", page.Pagination.Count, page.Pagination.Total)
		}
		return nil
	},
}

var recordsSubscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Follow changes to a collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCollection(cmd)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("Following %s", c.Collection().Name)
		return follow(cmd.Context(), c, title, func(m stream.Message) {
			fmt.Println(string(m.Data))
		})
	},
}

func init() {
	addProjectFlag(recordsCmd)
	recordsCmd.PersistentFlags().StringVarP(&flagCollection, "collection", "c", "", "collection id")

	for _, c := range []*cobra.Command{recordsInsertCmd, recordsUpdateCmd} {
		c.Flags().StringArrayVar(&recSet, "set", nil, "field value as key=value (repeatable)")
		c.Flags().StringVarP(&recFile, "file", "f", "", "JSON file with the record")
	}
	addYesFlag(recordsDeleteCmd)

	ff := recordsFindCmd.Flags()
	ff.StringSliceVar(&recFields, "field", nil, "fields to return (repeatable)")
	ff.StringArrayVar(&recWhere, "where", nil, `filter as "field op value" (repeatable)`)
	ff.StringSliceVar(&recGroups, "group", nil, "group by field (repeatable)")
	ff.StringArrayVar(&recOrders, "order", nil, "sort as field[:asc|desc] (repeatable)")
	ff.IntVar(&recLimit, "limit", 0, "maximum number of records")
	ff.StringVar(&recQueryFn, "query", "", "JSON file with a full query")

	recordsCmd.AddCommand(recordsInsertCmd, recordsGetCmd, recordsUpdateCmd, recordsDeleteCmd,
		recordsFindCmd, recordsSubscribeCmd, recordsImportCmd)
	rootCmd.AddCommand(recordsCmd)
}

// renderRecords prints records with one column per schema field, hidden
// fields last.
func renderRecords(c *hyperbase.CollectionClient, records ...hyperbase.Record) error {
	var value any = records
	if len(records) == 1 {
		value = records[0]
	}
	return render(value, func() output.Table {
		return recordTable(c.Schema(), records)
	})
}

func recordTable(fields schema.Schema, records []hyperbase.Record) output.Table {
	columns := []string{schema.FieldID}
	var hidden []string
	for _, name := range fields.Names() {
		if fields[name].Hidden {
			hidden = append(hidden, name)
			continue
		}
		columns = append(columns, name)
	}
	columns = append(columns, hidden...)

	t := output.Table{Header: columns}
	for _, r := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = output.Value(r[col])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
