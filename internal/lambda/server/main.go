package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/di"
	"github.com/savaki/auth-broker/internal/server"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func setupContainer(env, configFile string, disableSSM bool) (di.Container, error) {
	return di.New(env,
		di.WithConfigFile(configFile),
		di.WithDisableSSM(disableSSM),
	)
}

// newHTTPHandler applies the middleware stack: logging -> strip env prefix -> routes
func newHTTPHandler(container di.Container, env string) (http.Handler, error) {
	var (
		logger  zerolog.Logger
		handler *server.Handler
	)
	err := container.Invoke(func(l zerolog.Logger, h *server.Handler) {
		logger = l
		handler = h
	})
	if err != nil {
		return nil, err
	}

	return server.LoggingMiddleware(logger)(server.StripPrefixMiddleware(env, handler.Routes())), nil
}

// serveAction starts a local HTTP server on the configured port
func serveAction(c *cli.Context) error {
	env := c.String("env")

	container, err := setupContainer(env, c.String("config"), c.Bool("disable-ssm"))
	if err != nil {
		return fmt.Errorf("failed to setup DI container: %w", err)
	}

	httpHandler, err := newHTTPHandler(container, env)
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}

	logger := di.MustGet[zerolog.Logger](container)
	config := di.MustGet[*services.Config](container)

	port := config.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}
	addr := fmt.Sprintf(":%d", port)

	logger.Info().
		Str("addr", addr).
		Str("env", env).
		Str("auth_provider", config.AuthProvider).
		Str("login_url", config.BaseURL()+config.LoginPath).
		Msg("Starting HTTP server")

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info().Msg("HTTP server stopped")
	return nil
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "server").Logger()

	// Check if running in Lambda environment
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		// Get ENV from environment variable
		env := os.Getenv("ENV")
		if env == "" {
			env = os.Getenv("ENVIRONMENT")
		}
		if env == "" {
			logger.Error().Msg("ENV or ENVIRONMENT variable is required")
			os.Exit(1)
		}

		container, err := setupContainer(env, "", os.Getenv("DISABLE_SSM") == "true")
		if err != nil {
			logger.Error().Err(err).Msg("Failed to setup DI container")
			os.Exit(1)
		}

		httpHandler, err := newHTTPHandler(container, env)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize handler")
			os.Exit(1)
		}

		logger.Info().Str("env", env).Msg("Initializing Lambda handler")

		// Use AWS Lambda HTTP adapter for API Gateway V2
		lambda.Start(httpadapter.NewV2(httpHandler).ProxyWithContext)
		return
	}

	// CLI mode for local testing
	app := &cli.App{
		Name:  "server",
		Usage: "Login broker for Entra ID and AWS Cognito",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name (selects SSM path and strips path prefix)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start local HTTP server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Port to listen on (defaults to PORT from configuration)",
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "YAML configuration file (replaces SSM and environment variables)",
						EnvVars: []string{"CONFIG_FILE"},
					},
					&cli.BoolFlag{
						Name:    "disable-ssm",
						Usage:   "Disable AWS Systems Manager Parameter Store (use environment variables and .env)",
						EnvVars: []string{"DISABLE_SSM"},
					},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
