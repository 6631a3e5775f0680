package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"golang.org/x/oauth2"
)

// RemoteFile is a session document offered by the remote picker.
type RemoteFile struct {
	ID           string
	Name         string
	ModifiedTime time.Time
	Size         int64
}

// Remote is the cloud storage collaborator: it obtains an access token
// through a consent flow, lists candidate files and fetches one by id.
type Remote interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
	ListSessions(ctx context.Context, token *oauth2.Token) ([]RemoteFile, error)
	Fetch(ctx context.Context, fileID string, token *oauth2.Token) ([]byte, error)
}

// Loader turns local files and remote file ids into sessions. It never
// holds the active session; callers apply results to their own state.
type Loader struct {
	remote  Remote
	missing []string

	mu    sync.Mutex
	token *oauth2.Token
}

// New returns a loader. remote may be nil, and missing names absent remote
// credentials; either disables remote loading with a ConfigurationError.
func New(remote Remote, missing []string) *Loader {
	return &Loader{remote: remote, missing: missing}
}

// RemoteEnabled reports whether remote loads can be attempted.
func (l *Loader) RemoteEnabled() bool {
	return l.remote != nil && len(l.missing) == 0
}

func (l *Loader) LoadFile(path string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sess, err := l.LoadBytes(data)
	if err != nil {
		slog.Warn("session load failed", "source", "local", "path", path, "error", err)
		return nil, err
	}
	slog.Info("session loaded", "source", "local", "path", path, "events", len(sess.Events))
	return sess, nil
}

func (l *Loader) LoadReader(r io.Reader) (*session.Session, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return l.LoadBytes(data)
}

func (l *Loader) LoadBytes(data []byte) (*session.Session, error) {
	return session.Parse(data)
}

// LoadRemote fetches the file with the given id and parses it like a
// local file.
func (l *Loader) LoadRemote(ctx context.Context, fileID string) (*session.Session, error) {
	if fileID == "" {
		return nil, errors.New("empty file id")
	}
	token, err := l.authorize(ctx)
	if err != nil {
		return nil, err
	}
	data, err := l.remote.Fetch(ctx, fileID, token)
	if err != nil {
		l.dropTokenOnUnauthorized(err)
		slog.Warn("remote fetch failed", "file_id", fileID, "error", err)
		return nil, err
	}
	sess, err := l.LoadBytes(data)
	if err != nil {
		slog.Warn("session load failed", "source", "drive", "file_id", fileID, "error", err)
		return nil, err
	}
	slog.Info("session loaded", "source", "drive", "file_id", fileID, "events", len(sess.Events))
	return sess, nil
}

// ListRemote returns the session files the picker can offer.
func (l *Loader) ListRemote(ctx context.Context) ([]RemoteFile, error) {
	token, err := l.authorize(ctx)
	if err != nil {
		return nil, err
	}
	files, err := l.remote.ListSessions(ctx, token)
	if err != nil {
		l.dropTokenOnUnauthorized(err)
		return nil, err
	}
	return files, nil
}

func (l *Loader) authorize(ctx context.Context) (*oauth2.Token, error) {
	if l.remote == nil {
		return nil, &ConfigurationError{Msg: "remote integration is not available"}
	}
	if len(l.missing) > 0 {
		return nil, &ConfigurationError{Missing: l.missing}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token.Valid() {
		return l.token, nil
	}
	token, err := l.remote.Authorize(ctx)
	if err != nil {
		var ae *AuthError
		if !errors.As(err, &ae) {
			err = &AuthError{Err: err}
		}
		return nil, err
	}
	l.token = token
	return token, nil
}

func (l *Loader) dropTokenOnUnauthorized(err error) {
	var te *TransportError
	if errors.As(err, &te) && te.Status == 401 {
		l.mu.Lock()
		l.token = nil
		l.mu.Unlock()
	}
}
