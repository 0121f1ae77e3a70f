// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/output"
)

// whoamiCmd shows the administrator the restored session belongs to.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !client.Session().Snapshot().Authenticated {
			pterm.Println("🔒 You're not logged in yet!")
			pterm.Println("   Run 'hyperbase login' to get started.")
			return nil
		}
		admin, err := client.AdminData(cmd.Context())
		if err != nil {
			return err
		}
		return render(admin, func() output.Table {
			return adminTable(admin, client.BaseURL())
		})
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func adminTable(a *hyperbase.Admin, server string) output.Table {
	return output.Table{
		Header: []string{"EMAIL", "ID", "SINCE", "SERVER"},
		Rows:   [][]string{{a.Email, a.ID, localTime(a.CreatedAt), server}},
	}
}
