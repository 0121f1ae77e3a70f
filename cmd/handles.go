// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/schema"
	"hyperbase/cli/internal/terminal"
)

// Scope flags shared by the resource commands.
var (
	flagProject    string
	flagCollection string
	flagBucket     string
	flagToken      string
	flagYes        bool
)

func addProjectFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&flagProject, "project", "p", os.Getenv("HYPERBASE_PROJECT"), "project id (default $HYPERBASE_PROJECT)")
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")
}

func openProject(cmd *cobra.Command) (*hyperbase.ProjectClient, error) {
	if err := requireAdmin(); err != nil {
		return nil, err
	}
	if flagProject == "" {
		return nil, errors.New("--project is required")
	}
	return client.Project(cmd.Context(), flagProject)
}

func openCollection(cmd *cobra.Command) (*hyperbase.CollectionClient, error) {
	if flagCollection == "" {
		return nil, errors.New("--collection is required")
	}
	p, err := openProject(cmd)
	if err != nil {
		return nil, err
	}
	return p.Collection(cmd.Context(), flagCollection)
}

func openBucket(cmd *cobra.Command) (*hyperbase.BucketClient, error) {
	if flagBucket == "" {
		return nil, errors.New("--bucket is required")
	}
	p, err := openProject(cmd)
	if err != nil {
		return nil, err
	}
	return p.Bucket(cmd.Context(), flagBucket)
}

func openToken(cmd *cobra.Command) (*hyperbase.TokenClient, error) {
	if flagToken == "" {
		return nil, errors.New("--token is required")
	}
	p, err := openProject(cmd)
	if err != nil {
		return nil, err
	}
	return p.Token(cmd.Context(), flagToken)
}

// errDeclined stops a destructive command the user did not confirm.
var errDeclined = errors.New("cancelled")

// confirm asks a yes/no question unless --yes was given.
func confirm(question string) error {
	if flagYes {
		return nil
	}
	answer, err := terminal.Prompt(terminal.Stdin, os.Stderr, question+" [y/N]: ")
	if err != nil {
		if errors.Is(err, terminal.ErrNoInput) {
			return errors.New("confirmation needed; pass --yes to skip it")
		}
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	}
	return errDeclined
}

// localTime shows a server instant in the local time zone.
func localTime(instant string) string {
	if local, err := schema.ToLocalDatetimeText(instant); err == nil {
		return local
	}
	return instant
}
