package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// DefaultCallbackAddr is where the loopback redirect listener binds.
const DefaultCallbackAddr = "localhost:6789"

// Authorizer produces an authenticated HTTP client for the Sheets API.
// It first tries the cached token without user interaction; if that fails
// it calls OnPrompt and runs the browser authorization-code flow.
type Authorizer struct {
	CredentialsFile string
	TokenFile       string
	CallbackAddr    string
	// OnPrompt is told the consent URL the user has to open.
	OnPrompt func(authURL string, cause error)
	// Interactive limits how long the consent flow waits for the redirect.
	Interactive time.Duration

	mu     sync.Mutex
	client *http.Client
}

func NewAuthorizer(credentialsFile, tokenFile string) *Authorizer {
	return &Authorizer{
		CredentialsFile: credentialsFile,
		TokenFile:       tokenFile,
		CallbackAddr:    DefaultCallbackAddr,
		Interactive:     5 * time.Minute,
	}
}

// Client returns the cached authenticated client or acquires one.
// Concurrent callers share a single acquisition.
func (a *Authorizer) Client(ctx context.Context) (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, &RemoteSyncAuthError{Err: err}
	}

	ts, err := a.silent(ctx, cfg)
	if err != nil {
		log.Printf("sheets: cached token unusable, requesting consent: %v", err)
		tok, ierr := a.interactive(ctx, cfg, err)
		if ierr != nil {
			return nil, &RemoteSyncAuthError{Err: ierr}
		}
		a.saveToken(tok)
		ts = &savingSource{src: cfg.TokenSource(context.Background(), tok), last: tok, save: a.saveToken}
	}
	a.client = oauth2.NewClient(context.Background(), ts)
	return a.client, nil
}

// Reset forgets the cached client, e.g. after the token was revoked.
func (a *Authorizer) Reset() {
	a.mu.Lock()
	a.client = nil
	a.mu.Unlock()
}

func (a *Authorizer) config() (*oauth2.Config, error) {
	b, err := os.ReadFile(a.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client credentials %s: %w", a.CredentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse client credentials: %w", err)
	}
	addr := a.CallbackAddr
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	cfg.RedirectURL = "http://" + addr + "/oauth2callback"
	return cfg, nil
}

func (a *Authorizer) silent(ctx context.Context, cfg *oauth2.Config) (oauth2.TokenSource, error) {
	tok, err := tokenFromFile(a.TokenFile)
	if err != nil {
		return nil, err
	}
	ts := &savingSource{src: cfg.TokenSource(context.Background(), tok), last: tok, save: a.saveToken}
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("refresh cached token: %w", err)
	}
	return ts, nil
}

func (a *Authorizer) interactive(ctx context.Context, cfg *oauth2.Config, cause error) (*oauth2.Token, error) {
	addr := a.CallbackAddr
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect on %s: %w", addr, err)
	}
	defer ln.Close()

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			if e := q.Get("error"); e != "" {
				http.Error(w, "authorization denied", http.StatusForbidden)
				select { case errCh <- fmt.Errorf("consent denied: %s", e): default: }
				return
			}
			code := q.Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			select { case codeCh <- code: default: }
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select { case errCh <- err: default: }
		}
	}()
	defer srv.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	log.Printf("sheets: open this URL to authorize spreadsheet access: %s", authURL)
	if a.OnPrompt != nil {
		a.OnPrompt(authURL, cause)
	}

	wait := a.Interactive
	if wait <= 0 {
		wait = 5 * time.Minute
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case code := <-codeCh:
		xctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(xctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-timer.C:
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

func (a *Authorizer) saveToken(tok *oauth2.Token) {
	if a.TokenFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(a.TokenFile), 0o700); err != nil {
		log.Printf("sheets: create token dir: %v", err)
		return
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return
	}
	if err := os.WriteFile(a.TokenFile, b, 0o600); err != nil {
		log.Printf("sheets: cache token: %v", err)
	}
}

// savingSource persists the token whenever the underlying source refreshes it.
type savingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	last *oauth2.Token
	save func(*oauth2.Token)
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	changed := s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken
	s.last = tok
	s.mu.Unlock()
	if changed {
		s.save(tok)
	}
	return tok, nil
}
