// Package cmd implements the devdoxctl commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/resources"
	"github.com/devdox/dashboard/internal/state"
	"github.com/devdox/dashboard/pkg/config"
	"github.com/devdox/dashboard/pkg/logger"
	"github.com/devdox/dashboard/web/api"
)

// errNoCredential is returned when neither a token nor a saved login is available.
var errNoCredential = errors.New("no credential: pass --token, set DEVDOX_TOKEN, or run 'devdoxctl auth login'")

// app carries what every command needs. It is built per root command so
// tests can run commands in isolation.
type app struct {
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// session is a configured connection to the backend.
type session struct {
	cfg      *config.Config
	log      *logger.Logger
	services *resources.Services
	provider identity.Provider
}

// NewRootCmd builds the command tree reading from in and writing to out and errOut.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{v: config.New(), in: in, out: out, errOut: errOut}
	a.v.SetDefault("log.level", "warn")
	a.v.SetDefault("log.format", "text")

	root := &cobra.Command{
		Use:           "devdoxctl",
		Short:         "Command line client for DevDox",
		Long:          `Manage DevDox repositories, git tokens and API keys from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.String("api-url", "", "DevDox API base URL (DEVDOX_API_BASE_URL)")
	flags.String("token", "", "Bearer token, overrides the saved login (DEVDOX_TOKEN)")
	flags.String("credentials", "", "Path of the encrypted credentials file (DEVDOX_CLI_CREDENTIALS_PATH)")
	flags.StringP("output", "o", string(formatTable), "Output format: table, json or yaml")

	a.v.BindPFlag("api.base_url", flags.Lookup("api-url"))
	a.v.BindPFlag("token", flags.Lookup("token"))
	a.v.BindPFlag("cli.credentials_path", flags.Lookup("credentials"))
	a.v.BindPFlag("output", flags.Lookup("output"))

	root.AddCommand(
		newAuthCmd(a),
		newReposCmd(a),
		newTokensCmd(a),
		newKeysCmd(a),
	)
	return root
}

// Execute runs devdoxctl. Ctrl-C cancels in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) config() (*config.Config, error) {
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return nil, err
	}
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) credentialFile(cfg *config.Config) (identity.CredentialFile, error) {
	path := cfg.CLI.CredentialsPath
	if path == "" {
		var err error
		if path, err = identity.DefaultCredentialsPath(); err != nil {
			return identity.CredentialFile{}, err
		}
	}
	return identity.CredentialFile{
		Path:       path,
		Passphrase: a.v.GetString("credentials_passphrase"),
	}, nil
}

// connect builds the services and picks the credential source: an explicit
// token wins over the saved login.
func (a *app) connect() (*session, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	log := logger.FromConfig(cfg.Log, a.errOut).WithComponent("devdoxctl")

	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, err
	}

	var provider identity.Provider
	if token := a.v.GetString("token"); token != "" {
		provider = identity.Static(token)
	} else {
		file, err := a.credentialFile(cfg)
		if err != nil {
			return nil, err
		}
		if file.Passphrase == "" {
			return nil, errNoCredential
		}
		provider = file
	}

	return &session{
		cfg:      cfg,
		log:      log,
		services: resources.New(client, log.Logger),
		provider: provider,
	}, nil
}

func (s *session) storeOptions() []state.Option {
	return []state.Option{
		state.WithLogger(s.log.Logger),
		state.WithPage(models.Page{Limit: s.cfg.API.PageLimit}),
	}
}

func (s *session) apiKeys() *state.APIKeys {
	return state.NewAPIKeys(s.services.APIKeys, s.provider, s.storeOptions()...)
}

func (s *session) gitTokens() *state.GitTokens {
	return state.NewGitTokens(s.services.GitTokens, s.provider, s.storeOptions()...)
}

func (s *session) repositories() *state.Repositories {
	return state.NewRepositories(s.services.Repositories, s.provider, s.storeOptions()...)
}
