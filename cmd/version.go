// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

// versionCmd prints the CLI version and what the server reports about itself.
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show CLI version and server registration status",
	Annotations: noSession(),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("hyperbase %s\n", Version)
		fmt.Printf("server    %s\n", client.BaseURL())

		info, err := client.RegistrationInfo(cmd.Context())
		if err != nil {
			logger.Debug("registration info unavailable", "error", err)
			fmt.Println("server    unreachable")
			return nil
		}
		if info.IsEnabled {
			fmt.Println("admin registration is open")
		} else {
			fmt.Println("admin registration is closed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
