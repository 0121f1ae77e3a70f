// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/output"
	"hyperbase/cli/internal/stream"
)

var (
	logsBefore string
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Read the logs of a project",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List log entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		page, err := p.Logs().List(cmd.Context(), hyperbase.LogQuery{BeforeID: logsBefore, Limit: logsLimit})
		if err != nil {
			return err
		}
		if err := render(page.Logs, func() output.Table { return logTable(page.Logs...) }); err != nil {
			return err
		}
		if outFormat == output.FormatTable && len(page.Logs) > 0 && page.Pagination.Count < page.Pagination.Total {
			pterm.Info.Printfln("%d of %d entries; next page: --before %s",
				page.Pagination.Count, page.Pagination.Total, page.Logs[len(page.Logs)-1].ID)
		}
		return nil
	},
}

var logsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow new log entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("Following logs of %s", p.Project().Name)
		return follow(cmd.Context(), p.Logs(), title, func(m stream.Message) {
			var entry hyperbase.Log
			if err := m.Decode(&entry); err != nil {
				logger.Debug("undecodable log entry", "error", err)
				return
			}
			printLog(entry)
		})
	},
}

func init() {
	addProjectFlag(logsCmd)
	logsListCmd.Flags().StringVar(&logsBefore, "before", "", "list entries older than this log id")
	logsListCmd.Flags().IntVar(&logsLimit, "limit", 0, "maximum number of entries")
	logsCmd.AddCommand(logsListCmd, logsTailCmd)
	rootCmd.AddCommand(logsCmd)
}

func logTable(logs ...hyperbase.Log) output.Table {
	t := output.Table{Header: []string{"ID", "TIME", "KIND", "MESSAGE"}}
	for _, l := range logs {
		t.Rows = append(t.Rows, []string{l.ID, localTime(l.CreatedAt), logKindStyle(l.Kind).Sprint(string(l.Kind)), l.Message})
	}
	return t
}

func printLog(l hyperbase.Log) {
	if outFormat != output.FormatTable {
		_ = render(l, nil)
		return
	}
	pterm.Printfln("%s %s %s", pterm.Gray(localTime(l.CreatedAt)), logKindStyle(l.Kind).Sprintf("%-5s", l.Kind), l.Message)
}

func logKindStyle(k hyperbase.LogKind) *pterm.Style {
	switch k {
	case hyperbase.LogError:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case hyperbase.LogWarn:
		return pterm.NewStyle(pterm.FgYellow)
	case hyperbase.LogInfo:
		return pterm.NewStyle(pterm.FgCyan)
	}
	return pterm.NewStyle(pterm.FgGray)
}
