package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/devdox/dashboard/internal/models"
)

func newTokensCmd(a *app) *cobra.Command {
	tokens := &cobra.Command{
		Use:     "tokens",
		Aliases: []string{"git-tokens"},
		Short:   "Manage git hosting tokens",
	}
	tokens.AddCommand(
		newTokensListCmd(a),
		newTokensAddCmd(a),
		newTokensUpdateCmd(a),
		newTokensDeleteCmd(a),
		newTokensValidateCmd(a),
	)
	return tokens
}

func printTokens(a *app, v any, items []models.GitToken) error {
	return a.print(v, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tLABEL\tHOSTING\tTOKEN\tCREATED")
		for _, t := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Label, t.GitHosting.DisplayName(), t.MaskedToken, ago(&t.CreatedAt))
		}
	})
}

func newTokensListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List git tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			tokens := sess.gitTokens()
			defer tokens.Unmount()
			if err := tokens.Mount(cmd.Context()); err != nil {
				return err
			}
			items := tokens.Items()
			return printTokens(a, items, items)
		},
	}
}

func newTokensAddCmd(a *app) *cobra.Command {
	var label, hosting, value string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a new git hosting token",
		Long: `Store a new git hosting token. Missing values are asked for interactively.

Examples:
  devdoxctl tokens add --label work --hosting github --value "$GITHUB_TOKEN"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if label == "" {
				if label, err = (&promptui.Prompt{Label: "Label"}).Run(); err != nil {
					return err
				}
			}
			if hosting == "" {
				sel := promptui.Select{Label: "Provider", Items: []string{string(models.GitHostingGitHub), string(models.GitHostingGitLab)}}
				if _, hosting, err = sel.Run(); err != nil {
					return err
				}
			}
			h, err := models.ParseGitHosting(hosting)
			if err != nil {
				return err
			}
			if value == "" {
				if value, err = promptSecret("Token value"); err != nil {
					return err
				}
			}

			sess, err := a.connect()
			if err != nil {
				return err
			}
			tokens := sess.gitTokens()
			defer tokens.Unmount()
			tokens.Attach(cmd.Context())
			created, err := tokens.Create(cmd.Context(), models.CreateGitTokenRequest{Label: label, TokenValue: value, GitHosting: h})
			if err != nil {
				return err
			}
			return printTokens(a, created, []models.GitToken{created})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Label shown in DevDox")
	cmd.Flags().StringVar(&hosting, "hosting", "", "Provider: github or gitlab")
	cmd.Flags().StringVar(&value, "value", "", "Token value")
	return cmd
}

func newTokensUpdateCmd(a *app) *cobra.Command {
	var label, hosting, value string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the label, provider or value of a git token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.UpdateGitTokenRequest
			if cmd.Flags().Changed("label") {
				req.Label = &label
			}
			if cmd.Flags().Changed("hosting") {
				h, err := models.ParseGitHosting(hosting)
				if err != nil {
					return err
				}
				req.GitHosting = &h
			}
			if cmd.Flags().Changed("value") {
				req.TokenValue = &value
			}
			if err := req.Validate(); err != nil {
				return err
			}

			sess, err := a.connect()
			if err != nil {
				return err
			}
			tokens := sess.gitTokens()
			defer tokens.Unmount()
			tokens.Attach(cmd.Context())
			updated, err := tokens.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printTokens(a, updated, []models.GitToken{updated})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "New label")
	cmd.Flags().StringVar(&hosting, "hosting", "", "New provider: github or gitlab")
	cmd.Flags().StringVar(&value, "value", "", "New token value")
	return cmd
}

func newTokensDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a git token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			tokens := sess.gitTokens()
			defer tokens.Unmount()
			tokens.Attach(cmd.Context())
			if err := tokens.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Git token %s deleted\n", args[0])
			return nil
		},
	}
}

func newTokensValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>",
		Short: "Check a git token against its provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			tokens := sess.gitTokens()
			defer tokens.Unmount()
			tokens.Attach(cmd.Context())
			result, err := tokens.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result, func(w *tabwriter.Writer) { printValidation(w, result) })
		},
	}
}

func printValidation(w *tabwriter.Writer, v models.KeyValidation) {
	status := "invalid"
	if v.Valid {
		status = "valid"
	}
	fmt.Fprintln(w, "STATUS\tMESSAGE")
	fmt.Fprintf(w, "%s\t%s\n", status, v.Message)
}
