// Command gettoken exchanges a GoToWebinar authorization code for tokens and prints the
// environment lines to configure the server with.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/gtw-tools/internal/oauth"
	"github.com/aura-webinar/gtw-tools/internal/persist"
	"github.com/aura-webinar/gtw-tools/internal/tokens"
)

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var (
		cfg       oauth.Config
		stateDir  string
		tokensKey string
		verbose   bool
	)

	cmd := &cli.Command{
		Name:      "gettoken",
		Usage:     "Exchange a GoToWebinar authorization code for access and refresh tokens",
		ArgsUsage: "AUTH_CODE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "client-id",
				Usage:       "OAuth client ID",
				Sources:     cli.EnvVars("GTW_CLIENT_ID"),
				Destination: &cfg.ClientID,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "client-secret",
				Usage:       "OAuth client secret",
				Sources:     cli.EnvVars("GTW_CLIENT_SECRET"),
				Destination: &cfg.ClientSecret,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "redirect-uri",
				Usage:       "redirect URI registered for the client",
				Value:       "http://localhost:3000/oauth-callback",
				Sources:     cli.EnvVars("GTW_REDIRECT_URI"),
				Destination: &cfg.RedirectURI,
			},
			&cli.StringFlag{
				Name:        "token-url",
				Usage:       "OAuth token endpoint",
				Value:       "https://authentication.logmeininc.com/oauth/token",
				Sources:     cli.EnvVars("GTW_TOKEN_URL"),
				Destination: &cfg.TokenURL,
			},
			&cli.StringFlag{
				Name:        "state-dir",
				Usage:       "also write the tokens file the server loads at startup into this directory",
				Sources:     cli.EnvVars("STATE_DIR"),
				Destination: &stateDir,
			},
			&cli.StringFlag{
				Name:        "tokens-key",
				Usage:       "tokens file name inside --state-dir",
				Value:       ".tokens.json",
				Sources:     cli.EnvVars("TOKENS_KEY"),
				Destination: &tokensKey,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "log requests to stderr",
				Destination: &verbose,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			code := c.Args().First()
			if code == "" {
				return fmt.Errorf("authorization code is required: gettoken AUTH_CODE")
			}

			logger := zap.NewNop()
			if verbose {
				logger = newLogger()
				defer logger.Sync()
				logger.Info("requesting access token", zap.String("client_id", cfg.ClientID), zap.String("redirect_uri", cfg.RedirectURI))
			}

			var backend persist.Backend = persist.NewMemory()
			if stateDir != "" {
				backend = persist.NewFile(stateDir)
			}
			store := tokens.NewStore(backend, tokensKey, tokens.State{}, logger)
			ex := oauth.NewExchanger(cfg, store, &http.Client{Timeout: 30 * time.Second}, logger)

			st, err := ex.ExchangeCode(ctx, code)
			if err != nil {
				return fmt.Errorf("exchange code: %w", err)
			}

			fmt.Fprintln(out, "Add these to your environment:")
			fmt.Fprintf(out, "GTW_ACCESS_TOKEN=%s\n", st.AccessToken)
			fmt.Fprintf(out, "GTW_REFRESH_TOKEN=%s\n", st.RefreshToken)
			fmt.Fprintf(out, "GTW_ORGANIZER_KEY=%s\n", st.OrganizerKey)
			return nil
		},
	}
	return cmd.Run(ctx, args)
}

func newLogger() *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
