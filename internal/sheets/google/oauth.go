package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// CallbackPath is where the consent screen redirects with the auth code.
const CallbackPath = "/callback"

// OAuthConfig builds the installed-app OAuth config for the Sheets scope
// from a client JSON downloaded from the Google Cloud console.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// ReadClientJSON returns the inline client JSON, or reads it from file.
func ReadClientJSON(inline, file string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing OAuth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
}

func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Authorize runs the installed-app consent flow. It serves CallbackPath on
// ln, hands the consent URL to prompt and exchanges the code it receives.
// ln is closed on return.
func Authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, prompt func(url string)) (*oauth2.Token, error) {
	cfg.RedirectURL = "http://" + ln.Addr().String() + CallbackPath

	type result struct {
		code string
		err  error
	}
	resultCh := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		var res result
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			res.err = fmt.Errorf("oauth error: %s", errStr)
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
		} else {
			res.code = r.URL.Query().Get("code")
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case resultCh <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	prompt(cfg.AuthCodeURL("finanzas-sheets", oauth2.AccessTypeOffline))

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if res.code == "" {
			return nil, errors.New("callback carried no authorization code")
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		slog.InfoContext(ctx, "OAuth token obtained", "expiry", tok.Expiry)
		return tok, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
