package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gsheet "finanzas/internal/sheets/google"

	"github.com/spf13/cobra"
)

func newSheetsAuthCmd(a *app) *cobra.Command {
	var (
		tokenFile string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize Google Sheets export with a user account",
		Long: `Run the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE and save the token. Point GOOGLE_OAUTH_TOKEN_FILE at
the saved token to let the worker export as that user.

The client must allow http://localhost:<OAUTH_REDIRECT_PORT>/callback as a
redirect URI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := gsheet.ReadClientJSON(a.cfg.GoogleOAuthClientJSON, a.cfg.GoogleOAuthClientFile)
			if err != nil {
				return err
			}
			oauthCfg, err := gsheet.OAuthConfig(raw)
			if err != nil {
				return err
			}
			if tokenFile == "" {
				tokenFile = a.cfg.GoogleOAuthTokenFile
			}
			if tokenFile == "" {
				tokenFile = "token.json"
			}

			ln, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(a.cfg.OAuthRedirectPort)))
			if err != nil {
				return fmt.Errorf("listen for oauth callback: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			tok, err := gsheet.Authorize(ctx, oauthCfg, ln, func(url string) {
				fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", url)
			})
			if err != nil {
				return err
			}
			if err := gsheet.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved token to %s\n", tokenFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tokenFile, "token-file", "t", "", "where to save the token (default: GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for consent")
	return cmd
}
