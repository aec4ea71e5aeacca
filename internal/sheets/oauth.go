package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

const authTimeout = 5 * time.Minute

const callbackPage = `<html><body>
	<h1>%s</h1>
	<p>%s</p>
	<script>window.setTimeout(function(){window.close();}, 3000);</script>
</body></html>`

func oauthConfig(config Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + config.CallbackAddr + "/callback",
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// callbackHandler delivers the authorization code for the expected state
// on codeCh, or a failure on errCh. Both channels must be buffered.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, callbackPage, "Authentication Failed", "State mismatch. Please try again.")
			select {
			case errCh <- errors.New("oauth callback state mismatch"):
			default:
			}
			return
		}

		code := query.Get("code")
		if code == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, callbackPage, "Authentication Failed", "No authorization code received. Please try again.")
			select {
			case errCh <- errors.New("no authorization code received"):
			default:
			}
			return
		}

		_, _ = fmt.Fprintf(w, callbackPage, "Authentication Successful!", "You can close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	})
	return mux
}

// AuthenticateOAuth2Interactive runs the browser consent flow and saves the
// resulting token to config.TokenFile.
func AuthenticateOAuth2Interactive(ctx context.Context, config Config) (*oauth2.Token, error) {
	oc := oauthConfig(config)
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", config.CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	server := &http.Server{
		Handler:           callbackHandler(state, codeCh, errCh),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("callback server failed: %w", serveErr):
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Warn("Error shutting down callback server", "error", shutdownErr)
		}
	}()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	slog.Info("Google Sheets authentication required")
	slog.Info("Please visit this URL to authenticate", "url", authURL)

	var code string
	select {
	case code = <-codeCh:
		slog.Info("Received authorization code")
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authentication timeout: no response received within %s", authTimeout)
	}

	token, err := oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := saveToken(config.TokenFile, token); err != nil {
		slog.Warn("Failed to save token to file", "error", err, "file", config.TokenFile)
	} else {
		slog.Info("Token saved", "file", config.TokenFile)
	}
	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// GetOrCreateToken returns the saved token, refreshing it when expired,
// or runs the interactive flow when none is saved.
func GetOrCreateToken(ctx context.Context, config Config) (*oauth2.Token, error) {
	token, err := LoadToken(config.TokenFile)
	if err != nil {
		slog.Info("No usable token found, starting OAuth2 flow", "file", config.TokenFile)
		return AuthenticateOAuth2Interactive(ctx, config)
	}
	if token.Valid() {
		return token, nil
	}

	slog.Info("Token expired, refreshing")
	refreshed, err := oauthConfig(config).TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := saveToken(config.TokenFile, refreshed); err != nil {
		slog.Warn("Failed to save refreshed token", "error", err)
	}
	return refreshed, nil
}
