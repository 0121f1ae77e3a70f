// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/output"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAdmin(); err != nil {
			return err
		}
		projects, err := client.Projects(cmd.Context())
		if err != nil {
			return err
		}
		return render(projects, func() output.Table { return projectTable(projects...) })
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAdmin(); err != nil {
			return err
		}
		p, err := client.CreateProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		project := p.Project()
		return render(project, func() output.Table { return projectTable(project) })
	},
}

var projectsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAdmin(); err != nil {
			return err
		}
		p, err := client.Project(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		project := p.Project()
		return render(project, func() output.Table { return projectTable(project) })
	},
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAdmin(); err != nil {
			return err
		}
		p, err := client.Project(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := p.Update(cmd.Context(), args[1]); err != nil {
			return err
		}
		project := p.Project()
		return render(project, func() output.Table { return projectTable(project) })
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project with all its collections, buckets and tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAdmin(); err != nil {
			return err
		}
		p, err := client.Project(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete project %q and everything in it?", p.Project().Name)); err != nil {
			return err
		}
		if err := p.Delete(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Printfln("Project %s deleted", p.ID())
		return nil
	},
}

func init() {
	addYesFlag(projectsDeleteCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsGetCmd, projectsRenameCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

func projectTable(projects ...hyperbase.Project) output.Table {
	t := output.Table{Header: []string{"ID", "NAME", "CREATED"}}
	for _, p := range projects {
		t.Rows = append(t.Rows, []string{p.ID, p.Name, localTime(p.CreatedAt)})
	}
	return t
}
