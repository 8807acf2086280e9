// Package api is the client for the photo server's REST surface: album
// listing, target-album settings, uploaded-checksum reconciliation, auth
// checks and the multipart upload endpoint. Credentials are attached as
// Basic auth on every request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/credentials"
	"github.com/oglimmer/picz2/internal/logging"
)

type Client struct {
	baseURL *url.URL
	creds   credentials.Store
	http    *http.Client
	log     logging.Logger
}

// NewClient builds a client for the server at baseURL. httpClient may be nil
// to use http.DefaultClient; upload durations are governed by the caller's
// context, not a client timeout.
func NewClient(baseURL string, creds credentials.Store, httpClient *http.Client, log logging.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, creds: creds, http: httpClient, log: log.With("component", "api")}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	creds, err := c.creds.Load(ctx)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	return req, nil
}

// do executes the request and returns the response body for 2xx statuses.
// 401/403 map to common.ErrUnauthorized; other non-2xx statuses to
// ServerRejectedError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, common.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &common.ServerRejectedError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", req.URL.Path, err)
	}
	return data, nil
}

// Albums lists the user's albums.
func (c *Client) Albums(ctx context.Context) ([]Album, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/albums", nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed albumsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &common.DecodeError{Endpoint: "albums", Reason: err.Error()}
	}
	if err := parsed.validate(); err != nil {
		return nil, err
	}
	return parsed.Albums, nil
}

// TargetAlbum returns the server-side target album ID, or nil when the user
// has no target album selected.
func (c *Client) TargetAlbum(ctx context.Context) (*int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/settings/target-album", nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed targetAlbumResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &common.DecodeError{Endpoint: "target-album", Reason: err.Error()}
	}
	if err := parsed.validate(); err != nil {
		return nil, err
	}
	return parsed.AlbumID, nil
}

// SetTargetAlbum selects albumID as the upload destination.
func (c *Client) SetTargetAlbum(ctx context.Context, albumID int64) error {
	body, err := json.Marshal(map[string]int64{"albumId": albumID})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/api/settings/target-album", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

// ClearTargetAlbum removes the target album selection server-side.
func (c *Client) ClearTargetAlbum(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/settings/target-album", nil, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// UploadedChecksums returns the checksums the server received within the
// last `days` days.
func (c *Client) UploadedChecksums(ctx context.Context, days int) ([]string, error) {
	query := url.Values{"days": []string{strconv.Itoa(days)}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/sync/uploaded-checksums", query, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed checksumsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &common.DecodeError{Endpoint: "uploaded-checksums", Reason: err.Error()}
	}
	if err := parsed.validate(); err != nil {
		return nil, err
	}
	return parsed.Checksums, nil
}

// CheckAuth validates the stored credentials and returns the account email
// when the server provides one.
func (c *Client) CheckAuth(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/auth/check", nil, nil)
	if err != nil {
		return "", err
	}
	data, err := c.do(req)
	if err != nil {
		return "", err
	}

	var parsed authCheckResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &common.DecodeError{Endpoint: "auth-check", Reason: err.Error()}
	}
	if err := parsed.validate(); err != nil {
		return "", err
	}
	return parsed.Email, nil
}
