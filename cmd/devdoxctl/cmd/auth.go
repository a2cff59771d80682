package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/resources"
)

func newAuthCmd(a *app) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage the saved DevDox login",
	}
	auth.AddCommand(newLoginCmd(a), newLogoutCmd(a), newStatusCmd(a))
	return auth
}

func newLoginCmd(a *app) *cobra.Command {
	var withToken bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a DevDox token, encrypted with a passphrase",
		Long: `Save a DevDox token for later commands.

The token is checked against the API and then written to the credentials
file encrypted with age. The passphrase comes from DEVDOX_CREDENTIALS_PASSPHRASE
or is asked for interactively.

Examples:
  # Interactive
  devdoxctl auth login

  # From a pipe
  echo "$TOKEN" | devdoxctl auth login --with-token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			file, err := a.credentialFile(cfg)
			if err != nil {
				return err
			}

			var token string
			if withToken {
				line, err := bufio.NewReader(a.in).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading token from stdin: %w", err)
				}
				token = strings.TrimSpace(line)
			} else {
				token, err = promptSecret("DevDox token")
				if err != nil {
					return err
				}
			}
			if token == "" {
				return errors.New("token must not be empty")
			}

			if file.Passphrase == "" {
				if file.Passphrase, err = promptSecret("Passphrase for the credentials file"); err != nil {
					return err
				}
			}

			// Check the token before it is stored.
			a.v.Set("token", token)
			sess, err := a.connect()
			if err != nil {
				return err
			}
			keys := sess.apiKeys()
			defer keys.Unmount()
			if err := keys.Mount(cmd.Context()); err != nil {
				if errors.Is(err, resources.ErrUnauthenticated) {
					return errors.New("the token was rejected by the DevDox API")
				}
				return err
			}

			if err := file.Save(token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in. Credential saved to %s\n", file.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withToken, "with-token", false, "Read the token from standard input")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			file, err := a.credentialFile(cfg)
			if err != nil {
				return err
			}
			if err := file.Remove(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credential commands will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token := a.v.GetString("token"); token != "" {
				fmt.Fprintf(a.out, "Using token from flag or environment: %s\n", models.MaskToken(token))
				return nil
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			file, err := a.credentialFile(cfg)
			if err != nil {
				return err
			}
			if file.Passphrase == "" {
				fmt.Fprintf(a.out, "Credentials file: %s (locked, set DEVDOX_CREDENTIALS_PASSPHRASE)\n", file.Path)
				return nil
			}
			token, err := file.Load()
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprintln(a.out, "Not logged in.")
				return nil
			}
			fmt.Fprintf(a.out, "Logged in with %s (%s)\n", models.MaskToken(token), file.Path)
			return nil
		},
	}
}

func promptSecret(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("value is required")
			}
			return nil
		},
	}
	return prompt.Run()
}
