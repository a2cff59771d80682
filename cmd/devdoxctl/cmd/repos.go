package cmd

import (
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/notify"
	"github.com/devdox/dashboard/internal/state"
)

func newReposCmd(a *app) *cobra.Command {
	repos := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repositories"},
		Short:   "Manage repositories registered for analysis",
	}
	repos.AddCommand(
		newReposListCmd(a),
		newReposAddCmd(a),
		newReposDeleteCmd(a),
		newReposAnalyzeCmd(a),
	)
	return repos
}

func newReposListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			repos := sess.repositories()
			defer repos.Unmount()
			if err := repos.Mount(cmd.Context()); err != nil {
				return err
			}

			items := repos.Items()
			return a.print(items, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tREPOSITORY\tSTARS\tBRANCHES\tANALYZED")
				for _, r := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
						r.ID, r.DisplayName(), r.RepoName,
						humanize.Comma(int64(r.StargazersCount)), r.Branches, ago(r.RepoUpdatedAt))
				}
			})
		},
	}
}

func newReposAddCmd(a *app) *cobra.Command {
	var tokenID, path, alias string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a repository visible through one of your git tokens",
		Long: `Add a repository visible through one of your git tokens.

Without flags the command asks for the token, then the repository, then an
optional display name.

Examples:
  # Interactive
  devdoxctl repos add

  # Non-interactive
  devdoxctl repos add --token-id t1 --path org/app --alias "My App"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.connect()
			if err != nil {
				return err
			}

			repos := sess.repositories()
			defer repos.Unmount()
			repos.Attach(ctx)

			if tokenID == "" {
				tokens := sess.gitTokens()
				defer tokens.Unmount()
				if err := tokens.Mount(ctx); err != nil {
					return err
				}
				if tokenID, err = selectToken(tokens.Items()); err != nil {
					return err
				}
			}

			center := notify.NewCenter(notify.WithLogger(sess.log.Logger))
			defer center.Close()
			flow := state.NewAddRepositoryFlow(repos, center)
			flow.Open()
			defer flow.Close()

			choices, err := flow.SelectToken(ctx, tokenID)
			if err != nil {
				return err
			}

			if path == "" {
				if path, err = selectProviderRepo(choices); err != nil {
					return err
				}
				if !cmd.Flags().Changed("alias") {
					prompt := promptui.Prompt{Label: "Display name (empty for " + path + ")"}
					if alias, err = prompt.Run(); err != nil {
						return err
					}
				}
			} else if !slices.ContainsFunc(choices, func(c models.ProviderRepository) bool { return c.RepoName == path }) {
				return fmt.Errorf("repository %q is not visible through token %s", path, tokenID)
			}

			_, err = flow.Submit(ctx, path, alias)
			printNotifications(a.out, center)
			return err
		},
	}
	cmd.Flags().StringVar(&tokenID, "token-id", "", "Git token to add the repository through")
	cmd.Flags().StringVar(&path, "path", "", "Repository path on the provider, e.g. org/app")
	cmd.Flags().StringVar(&alias, "alias", "", "Display name in DevDox (defaults to the path)")
	return cmd
}

func selectToken(tokens []models.GitToken) (string, error) {
	if len(tokens) == 0 {
		return "", errors.New("no git tokens yet: add one with 'devdoxctl tokens add'")
	}
	labels := make([]string, len(tokens))
	for i, t := range tokens {
		labels[i] = fmt.Sprintf("%s (%s, %s)", t.Label, t.GitHosting.DisplayName(), t.MaskedToken)
	}
	sel := promptui.Select{Label: "Git token", Items: labels}
	i, _, err := sel.Run()
	if err != nil {
		return "", err
	}
	return tokens[i].ID, nil
}

func selectProviderRepo(choices []models.ProviderRepository) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("no repositories are visible through this token")
	}
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.RepoName
	}
	sel := promptui.Select{Label: "Repository", Items: names, Size: 10}
	_, name, err := sel.Run()
	return name, err
}

func newReposDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a repository from DevDox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			repos := sess.repositories()
			defer repos.Unmount()
			repos.Attach(cmd.Context())
			if err := repos.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Repository %s deleted\n", args[0])
			return nil
		},
	}
}

func newReposAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Start an analysis of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.connect()
			if err != nil {
				return err
			}
			repos := sess.repositories()
			defer repos.Unmount()
			repos.Attach(cmd.Context())
			if err := repos.Analyze(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Analysis started for %s\n", args[0])
			return nil
		},
	}
}
