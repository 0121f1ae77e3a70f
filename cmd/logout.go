// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/keychain"
)

var logoutAll bool

// logoutCmd forgets the stored session. The server is not contacted; session
// tokens expire on their own.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved session token",
	Long: `The logout command removes the session token from the OS keychain. With --all it
also removes the saved import connection string (see 'hyperbase connect').`,
	Annotations: noSession(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.SignOut(); err != nil {
			return err
		}
		if logoutAll {
			km, err := keychain.GetManager()
			if err != nil {
				return err
			}
			if err := km.ClearAll(); err != nil {
				return err
			}
			pterm.Success.Println("All credentials have been removed")
			return nil
		}
		pterm.Success.Println("Signed out")
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "also remove the saved import connection")
	rootCmd.AddCommand(logoutCmd)
}
