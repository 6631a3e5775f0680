// Package drive fetches session documents from Google Drive on behalf of
// a user who granted read access through the browser consent flow.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"github.com/Zuo-Peng/adk-session-viewer/internal/open"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	sessionQuery = "mimeType='application/json' and trashed=false"
	listPageSize = 50
)

type Config struct {
	APIKey       string
	ClientID     string
	ClientSecret string
	AppID        string
	// Endpoint overrides the Drive API base URL.
	Endpoint string
}

// Client implements loader.Remote against the Drive v3 API.
type Client struct {
	cfg     Config
	oauth   oauth2.Endpoint
	base    http.RoundTripper
	openURL func(string) error
	timeout time.Duration
}

func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		oauth:   google.Endpoint,
		base:    http.DefaultTransport,
		openURL: open.URL,
		timeout: consentTimeout,
	}
}

var _ loader.Remote = (*Client)(nil)

func (c *Client) Fetch(ctx context.Context, fileID string, token *oauth2.Token) ([]byte, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &loader.TransportError{Status: resp.StatusCode, Err: err}
	}
	slog.Debug("drive file downloaded", "file_id", fileID, "bytes", len(data))
	return data, nil
}

func (c *Client) ListSessions(ctx context.Context, token *oauth2.Token) ([]loader.RemoteFile, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}
	list, err := svc.Files.List().
		Q(sessionQuery).
		OrderBy("modifiedTime desc").
		PageSize(listPageSize).
		Fields("files(id,name,modifiedTime,size)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, transportError(err)
	}

	files := make([]loader.RemoteFile, 0, len(list.Files))
	for _, f := range list.Files {
		rf := loader.RemoteFile{ID: f.Id, Name: f.Name, Size: f.Size}
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			rf.ModifiedTime = t
		}
		files = append(files, rf)
	}
	return files, nil
}

func (c *Client) service(ctx context.Context, token *oauth2.Token) (*drive.Service, error) {
	hc := &http.Client{
		Transport: &keyTransport{
			key: c.cfg.APIKey,
			base: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(token),
				Base:   c.base,
			},
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	svc.UserAgent = userAgent(c.cfg.AppID)
	return svc, nil
}

func userAgent(appID string) string {
	if appID == "" {
		return "asv"
	}
	return "asv (app " + appID + ")"
}

// keyTransport adds the API key to every request. option.WithAPIKey is
// ignored once a custom HTTP client is supplied.
type keyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(r)
}

func transportError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &loader.TransportError{Status: gerr.Code, Err: err}
	}
	return &loader.TransportError{Err: err}
}
