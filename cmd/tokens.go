// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/output"
	"hyperbase/cli/internal/schema"
)

var (
	tokenName      string
	tokenAnonymous bool
	tokenExpires   string

	ruleCollection string
	ruleBucket     string
	ruleFindOne    string
	ruleFindMany   string
	ruleInsertOne  bool
	ruleUpdateOne  string
	ruleDeleteOne  string
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"token"},
	Short:   "Manage the access tokens of a project",
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		tokens, err := p.Tokens(cmd.Context())
		if err != nil {
			return err
		}
		return render(tokens, func() output.Table { return tokenTable(tokens...) })
	},
}

var tokensCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := hyperbase.TokenCreate{Name: args[0], AllowAnonymous: tokenAnonymous}
		if tokenExpires != "" {
			at, err := schema.ToInstant(tokenExpires)
			if err != nil {
				return fmt.Errorf("invalid --expires %q: %w", tokenExpires, err)
			}
			in.ExpiredAt = &at
		}
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		t, err := p.CreateToken(cmd.Context(), in)
		if err != nil {
			return err
		}
		token := t.Token()
		return render(token, func() output.Table { return tokenTable(token) })
	},
}

var tokensUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a token's name, anonymous access or expiry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in hyperbase.TokenUpdate
		if cmd.Flags().Changed("name") {
			in.Name = &tokenName
		}
		if cmd.Flags().Changed("anonymous") {
			in.AllowAnonymous = &tokenAnonymous
		}
		if tokenExpires != "" {
			at, err := schema.ToInstant(tokenExpires)
			if err != nil {
				return fmt.Errorf("invalid --expires %q: %w", tokenExpires, err)
			}
			in.ExpiredAt = &at
		}
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		t, err := p.Token(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := t.Update(cmd.Context(), in); err != nil {
			return err
		}
		token := t.Token()
		return render(token, func() output.Table { return tokenTable(token) })
	},
}

var tokensDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a token and its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		t, err := p.Token(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete token %q? Clients using it lose access.", t.Token().Name)); err != nil {
			return err
		}
		if err := t.Delete(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Printfln("Token %s deleted", t.ID())
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:     "rules",
	Aliases: []string{"rule"},
	Short:   "Manage what a token may do on collections and buckets",
}

// ruleRow is the printable form of a collection or bucket rule.
type ruleRow struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Target string `json:"target_id"`
	hyperbase.Rule
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a token's rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openToken(cmd)
		if err != nil {
			return err
		}
		colRules, err := t.CollectionRules(cmd.Context())
		if err != nil {
			return err
		}
		bucketRules, err := t.BucketRules(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([]ruleRow, 0, len(colRules)+len(bucketRules))
		for _, r := range colRules {
			rows = append(rows, ruleRow{ID: r.ID, Kind: "collection", Target: r.CollectionID, Rule: r.Rule})
		}
		for _, r := range bucketRules {
			rows = append(rows, ruleRow{ID: r.ID, Kind: "bucket", Target: r.BucketID, Rule: r.Rule})
		}
		return render(rows, func() output.Table { return ruleTable(rows...) })
	},
}

var rulesGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant a token access to a collection or bucket",
	Long: `Grant a token access to a collection (--collection) or a bucket (--bucket).
An existing rule for the same target is replaced.

Permissions are all, self_made (records or files the caller created) or none.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (ruleCollection == "") == (ruleBucket == "") {
			return errors.New("pass exactly one of --collection or --bucket")
		}
		rule := hyperbase.Rule{
			FindOne:   hyperbase.Permission(ruleFindOne),
			FindMany:  hyperbase.Permission(ruleFindMany),
			InsertOne: ruleInsertOne,
			UpdateOne: hyperbase.Permission(ruleUpdateOne),
			DeleteOne: hyperbase.Permission(ruleDeleteOne),
		}
		t, err := openToken(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var row ruleRow
		if ruleCollection != "" {
			existing, err := t.CollectionRules(ctx)
			if err != nil {
				return err
			}
			var out *hyperbase.CollectionRule
			if id := findCollectionRule(existing, ruleCollection); id != "" {
				out, err = t.UpdateCollectionRule(ctx, id, rule)
			} else {
				out, err = t.CreateCollectionRule(ctx, ruleCollection, rule)
			}
			if err != nil {
				return err
			}
			row = ruleRow{ID: out.ID, Kind: "collection", Target: out.CollectionID, Rule: out.Rule}
		} else {
			existing, err := t.BucketRules(ctx)
			if err != nil {
				return err
			}
			var out *hyperbase.BucketRule
			if id := findBucketRule(existing, ruleBucket); id != "" {
				out, err = t.UpdateBucketRule(ctx, id, rule)
			} else {
				out, err = t.CreateBucketRule(ctx, ruleBucket, rule)
			}
			if err != nil {
				return err
			}
			row = ruleRow{ID: out.ID, Kind: "bucket", Target: out.BucketID, Rule: out.Rule}
		}
		return render(row, func() output.Table { return ruleTable(row) })
	},
}

var rulesRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Remove a token's rule for a collection or bucket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (ruleCollection == "") == (ruleBucket == "") {
			return errors.New("pass exactly one of --collection or --bucket")
		}
		t, err := openToken(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ruleCollection != "" {
			existing, err := t.CollectionRules(ctx)
			if err != nil {
				return err
			}
			id := findCollectionRule(existing, ruleCollection)
			if id == "" {
				pterm.Info.Println("The token has no rule for this collection")
				return nil
			}
			if err := t.DeleteCollectionRule(ctx, id); err != nil {
				return err
			}
		} else {
			existing, err := t.BucketRules(ctx)
			if err != nil {
				return err
			}
			id := findBucketRule(existing, ruleBucket)
			if id == "" {
				pterm.Info.Println("The token has no rule for this bucket")
				return nil
			}
			if err := t.DeleteBucketRule(ctx, id); err != nil {
				return err
			}
		}
		pterm.Success.Println("Rule revoked")
		return nil
	},
}

func init() {
	addProjectFlag(tokensCmd)
	for _, c := range []*cobra.Command{tokensCreateCmd, tokensUpdateCmd} {
		c.Flags().BoolVar(&tokenAnonymous, "anonymous", false, "allow clients to sign in anonymously with this token")
		c.Flags().StringVar(&tokenExpires, "expires", "", "expiry as local date-time, e.g. 2026-01-31T18:00")
	}
	tokensUpdateCmd.Flags().StringVar(&tokenName, "name", "", "new token name")
	addYesFlag(tokensDeleteCmd)
	tokensCmd.AddCommand(tokensListCmd, tokensCreateCmd, tokensUpdateCmd, tokensDeleteCmd)

	addProjectFlag(rulesCmd)
	rulesCmd.PersistentFlags().StringVarP(&flagToken, "token", "t", "", "token id")
	for _, c := range []*cobra.Command{rulesGrantCmd, rulesRevokeCmd} {
		c.Flags().StringVar(&ruleCollection, "collection", "", "collection id")
		c.Flags().StringVar(&ruleBucket, "bucket", "", "bucket id")
	}
	gf := rulesGrantCmd.Flags()
	gf.StringVar(&ruleFindOne, "find-one", string(hyperbase.PermissionNone), "read single records or files")
	gf.StringVar(&ruleFindMany, "find-many", string(hyperbase.PermissionNone), "query or list")
	gf.BoolVar(&ruleInsertOne, "insert-one", false, "create records or upload files")
	gf.StringVar(&ruleUpdateOne, "update-one", string(hyperbase.PermissionNone), "update records or rename files")
	gf.StringVar(&ruleDeleteOne, "delete-one", string(hyperbase.PermissionNone), "delete records or files")
	rulesCmd.AddCommand(rulesListCmd, rulesGrantCmd, rulesRevokeCmd)

	rootCmd.AddCommand(tokensCmd, rulesCmd)
}

func findCollectionRule(rules []hyperbase.CollectionRule, collectionID string) string {
	for _, r := range rules {
		if r.CollectionID == collectionID {
			return r.ID
		}
	}
	return ""
}

func findBucketRule(rules []hyperbase.BucketRule, bucketID string) string {
	for _, r := range rules {
		if r.BucketID == bucketID {
			return r.ID
		}
	}
	return ""
}

func tokenTable(tokens ...hyperbase.Token) output.Table {
	t := output.Table{Header: []string{"ID", "NAME", "TOKEN", "ANONYMOUS", "EXPIRES"}}
	for _, tk := range tokens {
		expires := ""
		if tk.ExpiredAt != nil {
			expires = localTime(*tk.ExpiredAt)
		}
		t.Rows = append(t.Rows, []string{tk.ID, tk.Name, tk.Token, strconv.FormatBool(tk.AllowAnonymous), expires})
	}
	return t
}

func ruleTable(rows ...ruleRow) output.Table {
	header := []string{"ID", "KIND", "TARGET"}
	for _, name := range hyperbase.RuleNames {
		header = append(header, output.RuleTitle(name))
	}
	t := output.Table{Header: header}
	for _, r := range rows {
		insert := "no"
		if r.InsertOne {
			insert = "yes"
		}
		t.Rows = append(t.Rows, []string{
			r.ID, r.Kind, r.Target,
			string(r.FindOne), string(r.FindMany), insert, string(r.UpdateOne), string(r.DeleteOne),
		})
	}
	return t
}
