package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/internal/config"
	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/internal/logging"
	"github.com/systmms/authstack/internal/session"
	"github.com/systmms/authstack/pkg/loginflow"
)

// EnvLoginPassword supplies the login password when --password is not set,
// keeping it out of shell history and process listings.
const EnvLoginPassword = "AUTHSTACK_LOGIN_PASSWORD"

func NewLoginTestCommand(cfg *config.Config) *cobra.Command {
	var (
		baseURL    string
		identifier string
		password   string
		save       bool
		showCached bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login-test",
		Short: "Exercise the deployed identity login API end to end",
		Long: `Drive the identity service's API login flow as a smoke test: create a
login flow, extract its CSRF token, submit the credentials, and capture the
session token from the response.

The password is read from --password or, when the flag is empty, from the
` + EnvLoginPassword + ` environment variable.

Examples:
  authstack login-test --identifier admin@example.com
  authstack login-test --identifier admin@example.com --save
  authstack login-test --identifier admin@example.com --url https://id.example.com
  authstack login-test --identifier admin@example.com --show-cached`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showCached {
				return showCachedSession(cfg, identifier)
			}

			if baseURL == "" {
				if err := cfg.Load(); err != nil {
					return err
				}
				baseURL = cfg.Definition.Endpoints.Identity
			}

			if password == "" {
				password = os.Getenv(EnvLoginPassword)
			}
			if password == "" {
				return aserrors.UserError{
					Message:    "no password provided",
					Suggestion: "Pass --password, or export " + EnvLoginPassword + " to keep it out of your shell history",
				}
			}
			secret := logging.Secret(password)

			client, err := loginflow.New(baseURL, timeout)
			if err != nil {
				return err
			}

			ctx := context.Background()
			cfg.Logger.Step("Creating login flow at %s", baseURL)
			flow, err := client.CreateFlow(ctx)
			if err != nil {
				return aserrors.SimplifyError(err)
			}
			cfg.Logger.Info("Login flow %s created", flow.ID)

			cfg.Logger.Step("Submitting credentials for %s", identifier)
			sess, err := client.SubmitPassword(ctx, flow, identifier, secret)
			if err != nil {
				return aserrors.SimplifyError(err)
			}
			cfg.Logger.Info("Login succeeded; session cookie captured (%s)", sess.CookiePair)
			cfg.Logger.Debug("session pair: %s", sess.CookiePair.Reveal())

			if save {
				if err := session.Save(identifier, sess.CookiePair); err != nil {
					return err
				}
				cfg.Logger.Info("Session cached in the OS keyring for %s", identifier)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Identity service public base URL (default: endpoints.identity from config)")
	cmd.Flags().StringVar(&identifier, "identifier", "", "Login identifier, usually the email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Login password (default: "+EnvLoginPassword+" environment variable)")
	cmd.Flags().BoolVar(&save, "save", false, "Cache the session cookie pair in the OS keyring")
	cmd.Flags().BoolVar(&showCached, "show-cached", false, "Report whether a cached session exists for the identifier")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")

	_ = cmd.MarkFlagRequired("identifier")

	return cmd
}

// showCachedSession reports on a previously saved session. The value itself
// only surfaces with --debug; otherwise the redacted form is shown.
func showCachedSession(cfg *config.Config, identifier string) error {
	pair, err := session.Load(identifier)
	if errors.Is(err, session.ErrNotCached) {
		return aserrors.UserError{
			Message:    "no cached session for " + identifier,
			Suggestion: "Run 'authstack login-test --identifier " + identifier + " --save' to cache one",
		}
	}
	if err != nil {
		return err
	}

	cfg.Logger.Info("Cached session found for %s (%s)", identifier, pair)
	cfg.Logger.Debug("session pair: %s", pair.Reveal())
	return nil
}
