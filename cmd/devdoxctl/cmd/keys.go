package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	keys := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"api-keys"},
		Short:   "Manage DevDox API keys",
	}
	keys.AddCommand(
		newKeysListCmd(a),
		newKeysCreateCmd(a),
		newKeysDeleteCmd(a),
		newKeysValidateCmd(a),
	)
	return keys
}

func newKeysListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			keys := sess.apiKeys()
			defer keys.Unmount()
			if err := keys.Mount(cmd.Context()); err != nil {
				return err
			}

			items := keys.Items()
			return a.print(items, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tKEY\tCREATED\tLAST USED")
				for _, k := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k.ID, k.MaskedAPIKey, ago(&k.CreatedAt), ago(k.LastUsedAt))
				}
			})
		},
	}
}

func newKeysCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			keys := sess.apiKeys()
			defer keys.Unmount()
			keys.Attach(cmd.Context())
			created, err := keys.Create(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(a.errOut, "Copy the key now. It will not be shown again.")
			return a.print(created, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tKEY")
				fmt.Fprintf(w, "%s\t%s\n", created.ID, created.Key)
			})
		},
	}
}

func newKeysDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"revoke"},
		Short:   "Revoke an API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			keys := sess.apiKeys()
			defer keys.Unmount()
			keys.Attach(cmd.Context())
			if err := keys.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "API key %s revoked\n", args[0])
			return nil
		},
	}
}

func newKeysValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id>",
		Short: "Check whether an API key is still usable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			keys := sess.apiKeys()
			defer keys.Unmount()
			keys.Attach(cmd.Context())
			result, err := keys.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result, func(w *tabwriter.Writer) { printValidation(w, result) })
		},
	}
}
