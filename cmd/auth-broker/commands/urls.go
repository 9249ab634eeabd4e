package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/urfave/cli/v2"
)

// URLsCommand prints the URLs the configured provider would use. It reads the
// configuration from a YAML file or the environment and makes no network calls.
func URLsCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "urls",
		Usage: "Print the redirect, login and logout URLs for a configuration",
		Description: `Useful when registering the application with the identity provider:
the redirect URI printed here must match the registered one exactly.

Examples:
  auth-broker urls --config config.yaml
  AUTH_PROVIDER=cognito COGNITO_DOMAIN=my-pool CLIENT_ID=abc auth-broker urls`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file (defaults to environment variables and .env)",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "State value to include in the login URL",
			},
		},
		Action: func(c *cli.Context) error {
			var store services.ParameterStore = services.NewEnvParameterStore("")
			if file := c.String("config"); file != "" {
				store = services.NewFileParameterStore(file)
			}

			config, err := store.GetConfig(c.Context)
			if err != nil {
				return err
			}
			if err := config.Validate(); err != nil {
				return err
			}

			return printURLs(c.App.Writer, config, c.String("state"))
		},
	}
}

func printURLs(w io.Writer, config *services.Config, state string) error {
	id, err := config.ProviderID()
	if err != nil {
		return err
	}

	provider, err := auth.NewRegistry(config.ProviderConfig()).Resolve(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "provider:     %s\n", id)
	fmt.Fprintf(w, "redirect_uri: %s\n", config.RedirectURI())
	fmt.Fprintf(w, "login:        %s\n", provider.AuthorizationURL(state))
	fmt.Fprintf(w, "logout:       %s\n", provider.LogoutURL(config.LogoutURI()))
	return nil
}
