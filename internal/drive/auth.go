package drive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
)

const (
	callbackPath   = "/callback"
	consentTimeout = 3 * time.Minute
)

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the installed-app consent flow: a loopback listener on
// 127.0.0.1 receives the redirect, and the code is exchanged with a PKCE
// verifier.
func (c *Client) Authorize(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for consent redirect: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint:     c.oauth,
		RedirectURL:  "http://" + ln.Addr().String() + callbackPath,
		Scopes:       []string{drive.DriveReadonlyScope},
	}
	state, err := randomState()
	if err != nil {
		ln.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := readCallback(r, state)
		if res.err != nil {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	slog.Info("waiting for drive consent", "url", authURL)
	if err := c.openURL(authURL); err != nil {
		slog.Warn("could not open browser", "error", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, &loader.AuthError{Code: "timeout", Err: ctx.Err()}
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: c.base})
	token, err := conf.Exchange(exchangeCtx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			return nil, &loader.AuthError{Code: re.ErrorCode, Err: err}
		}
		return nil, &loader.AuthError{Err: err}
	}
	slog.Info("drive consent granted")
	return token, nil
}

func readCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if code := q.Get("error"); code != "" {
		return callbackResult{err: &loader.AuthError{Code: code}}
	}
	if q.Get("state") != state {
		return callbackResult{err: &loader.AuthError{Code: "state_mismatch"}}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: &loader.AuthError{Code: "missing_code"}}
	}
	return callbackResult{code: code}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
