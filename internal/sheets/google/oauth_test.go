package google

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testClientJSON))
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "test" {
		t.Errorf("client id = %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "spreadsheets") {
		t.Errorf("scopes = %v", cfg.Scopes)
	}

	if _, err := OAuthConfig([]byte("{}")); err == nil {
		t.Error("expected error for an empty client")
	}
}

func TestReadClientJSON(t *testing.T) {
	if _, err := ReadClientJSON("", ""); err == nil {
		t.Error("expected error without a client")
	}

	got, err := ReadClientJSON(testClientJSON, "/nonexistent")
	if err != nil || string(got) != testClientJSON {
		t.Errorf("inline JSON should win, got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(testClientJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = ReadClientJSON("", path)
	if err != nil || string(got) != testClientJSON {
		t.Errorf("file JSON = %q, %v", got, err)
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %v", perm)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("token = %+v", got)
	}

	if _, err := LoadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing token file")
	}
}

func TestNew_OAuthToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), Options{
		SpreadsheetID:   "test-id",
		OAuthClientJSON: testClientJSON,
		OAuthTokenFile:  path,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.svc == nil {
		t.Error("service not initialized")
	}

	_, err = New(context.Background(), Options{SpreadsheetID: "test-id", OAuthTokenFile: path})
	if err == nil || !strings.Contains(err.Error(), "missing OAuth client") {
		t.Errorf("expected missing client error, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "the-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","refresh_token":"r","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	cfg := &oauth2.Config{
		ClientID:     "test",
		ClientSecret: "test",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://example.invalid/auth", TokenURL: tokenServer.URL},
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consentURL string
	tok, err := Authorize(ctx, cfg, ln, func(url string) {
		consentURL = url
		go func() {
			resp, err := http.Get(cfg.RedirectURL + "?code=the-code")
			if err == nil {
				resp.Body.Close()
			}
		}()
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if tok.AccessToken != "abc" || tok.RefreshToken != "r" {
		t.Errorf("token = %+v", tok)
	}
	if !strings.Contains(consentURL, "access_type=offline") {
		t.Errorf("consent url = %s", consentURL)
	}
}

func TestAuthorize_Denied(t *testing.T) {
	cfg := &oauth2.Config{ClientID: "test", Endpoint: oauth2.Endpoint{AuthURL: "https://example.invalid/auth"}}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = Authorize(ctx, cfg, ln, func(string) {
		go func() {
			resp, err := http.Get(cfg.RedirectURL + "?error=access_denied")
			if err == nil {
				resp.Body.Close()
			}
		}()
	})
	if err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("expected access_denied, got %v", err)
	}
}
