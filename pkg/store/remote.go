package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"tableflip.dev/pomo/pkg/milestone"
)

const (
	defaultRemoteTimeout = 15 * time.Second
	maxRemoteBody        = 1 << 20
)

var _ Store = (*Remote)(nil)

// Remote talks to the milestone HTTP API used by signed-in users.
type Remote struct {
	base   *url.URL
	token  string
	client *http.Client
}

// RemoteOption customizes a Remote store.
type RemoteOption func(*Remote)

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) RemoteOption {
	return func(r *Remote) { r.token = token }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// NewRemote returns a store for the API rooted at baseURL.
func NewRemote(baseURL string, opts ...RemoteOption) (*Remote, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("store: remote url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("store: remote url %q needs scheme and host", baseURL)
	}
	r := &Remote{base: u, client: &http.Client{Timeout: defaultRemoteTimeout}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ErrorBody is the JSON error payload of the API.
type ErrorBody struct {
	Error string `json:"error"`
}

func (r *Remote) List(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	var out []milestone.Milestone
	if err := r.do(ctx, http.MethodGet, projectPath(projectID), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []milestone.Milestone{}
	}
	milestone.Sort(out)
	return out, nil
}

func (r *Remote) Get(ctx context.Context, id string) (milestone.Milestone, error) {
	var out milestone.Milestone
	err := r.do(ctx, http.MethodGet, milestonePath(id), nil, &out)
	return out, err
}

func (r *Remote) Create(ctx context.Context, projectID string, d milestone.Draft) (milestone.Milestone, error) {
	if err := d.Validate(); err != nil {
		return milestone.Milestone{}, err
	}
	var out milestone.Milestone
	err := r.do(ctx, http.MethodPost, projectPath(projectID), d, &out)
	return out, err
}

func (r *Remote) Update(ctx context.Context, id string, p milestone.Patch) (milestone.Milestone, error) {
	if err := p.Validate(); err != nil {
		return milestone.Milestone{}, err
	}
	var out milestone.Milestone
	err := r.do(ctx, http.MethodPut, milestonePath(id), p, &out)
	return out, err
}

func (r *Remote) Remove(ctx context.Context, id string) error {
	err := r.do(ctx, http.MethodDelete, milestonePath(id), nil, nil)
	if errors.Is(err, milestone.ErrNotFound) {
		return nil
	}
	return err
}

func projectPath(projectID string) string {
	return "/projects/" + url.PathEscape(projectID) + "/milestones"
}

func milestonePath(id string) string {
	return "/milestones/" + url.PathEscape(id)
}

func (r *Remote) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := sonic.ConfigStd.Marshal(in)
		if err != nil {
			return fmt.Errorf("store: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", milestone.ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", milestone.ErrBackendUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", milestone.ErrBackendUnavailable, err)
	}
	return nil
}

// statusError maps an HTTP status to the milestone error taxonomy.
func statusError(status int, body []byte) error {
	msg := http.StatusText(status)
	var eb ErrorBody
	if len(body) > 0 && sonic.ConfigStd.Unmarshal(body, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", milestone.ErrNotFound, msg)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", milestone.ErrForbidden, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", milestone.ErrValidation, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", milestone.ErrBackendUnavailable, status, msg)
	}
}
