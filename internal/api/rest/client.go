// Package rest implements the remote api.Client against the service's
// HTTP/JSON endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lightstands/standsync/internal/api"
)

const defaultTimeout = 30 * time.Second

// Client talks to the remote service over HTTP. GET requests are retried
// with exponential backoff on network errors and 5xx responses; mutating
// requests are sent once (the sync engine handles their failures by keeping
// rows dirty).
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxElapsed time.Duration
}

var _ api.Client = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetryBudget caps the total time spent retrying one GET.
func WithRetryBudget(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// New builds a Client for the given base URL, e.g.
// "https://api.lightstands.xyz/moutsea".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxElapsed: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle transport connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type wireError struct {
	Error struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"error"`
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return api.CodeNotFound
	case http.StatusUnauthorized:
		return api.CodeUnauthorized
	case http.StatusPaymentRequired:
		return api.CodePaymentRequired
	case http.StatusConflict:
		return api.CodeConflict
	case http.StatusTooManyRequests:
		return api.CodeQuotaExceeded
	case http.StatusInsufficientStorage:
		return api.CodeInsufficientStorage
	default:
		return api.CodeInternal
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &api.Error{Status: resp.StatusCode, Code: codeForStatus(resp.StatusCode)}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var we wireError
		if json.Unmarshal(body, &we) == nil && we.Error.Code != "" {
			apiErr.Code = we.Error.Code
			apiErr.Detail = we.Error.Detail
		}
	}
	return apiErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, s *api.Session, body any) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}
	return req, nil
}

// doOnce performs the request and decodes a JSON response into out.
func (c *Client) doOnce(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// get performs a retried GET. Expected remote errors below 500 are
// permanent; 5xx and transport errors back off and retry.
func (c *Client) get(ctx context.Context, path string, query url.Values, s *api.Session, out any) error {
	op := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, query, s, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		err = c.doOnce(req, out)
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(c.maxElapsed))
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (c *Client) send(ctx context.Context, method, path string, s *api.Session, body, out any) error {
	req, err := c.newRequest(ctx, method, path, nil, s, body)
	if err != nil {
		return err
	}
	return c.doOnce(req, out)
}

// CreateSession implements api.Client.
func (c *Client) CreateSession(ctx context.Context, username, password string) (api.Session, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := c.send(ctx, http.MethodPost, "sessions", nil, body, &resp); err != nil {
		return api.Session{}, err
	}
	return api.Session{AccessToken: resp.AccessToken, UserID: resp.UserID}, nil
}

// ListFeedLists implements api.Client.
func (c *Client) ListFeedLists(ctx context.Context, s api.Session) ([]api.FeedListMeta, error) {
	var resp struct {
		Lists []api.FeedListMeta `json:"lists"`
	}
	path := fmt.Sprintf("users/%d/feedlists", s.UserID)
	if err := c.get(ctx, path, nil, &s, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// GetFeedList implements api.Client.
func (c *Client) GetFeedList(ctx context.Context, s api.Session, listID int64) (api.FeedListDetail, error) {
	var detail api.FeedListDetail
	path := fmt.Sprintf("feedlists/%d", listID)
	if err := c.get(ctx, path, nil, &s, &detail); err != nil {
		return api.FeedListDetail{}, err
	}
	return detail, nil
}

// PatchFeedList implements api.Client.
func (c *Client) PatchFeedList(ctx context.Context, s api.Session, listID int64, patch api.FeedListPatch) error {
	path := fmt.Sprintf("feedlists/%d", listID)
	return c.send(ctx, http.MethodPatch, path, &s, patch, nil)
}

// CreateFeedList implements api.Client.
func (c *Client) CreateFeedList(ctx context.Context, s api.Session, name string) (api.FeedListMeta, error) {
	var meta api.FeedListMeta
	body := map[string]string{"name": name}
	if err := c.send(ctx, http.MethodPost, "feedlists", &s, body, &meta); err != nil {
		return api.FeedListMeta{}, err
	}
	return meta, nil
}

// ListReadTags implements api.Client.
func (c *Client) ListReadTags(ctx context.Context, s api.Session, userID int64, updatedSince int64) (api.TagPage, error) {
	query := url.Values{}
	if updatedSince > 0 {
		query.Set("updated_since", strconv.FormatInt(updatedSince, 10))
	}
	var page api.TagPage
	path := fmt.Sprintf("users/%d/tags/_read", userID)
	if err := c.get(ctx, path, query, &s, &page); err != nil {
		return api.TagPage{}, err
	}
	return page, nil
}

// PatchPostTags implements api.Client.
func (c *Client) PatchPostTags(ctx context.Context, s api.Session, userID int64, feedURLHash, postIDHash string, patch api.TagPatch) error {
	path := fmt.Sprintf("users/%d/feeds/%s/posts/%s/tags", userID, feedURLHash, postIDHash)
	return c.send(ctx, http.MethodPatch, path, &s, patch, nil)
}

// GetFeedInfo implements api.Client.
func (c *Client) GetFeedInfo(ctx context.Context, feedURLHash string) (api.Feed, error) {
	var feed api.Feed
	if err := c.get(ctx, "feeds/"+feedURLHash, nil, nil, &feed); err != nil {
		return api.Feed{}, err
	}
	return feed, nil
}

// GetFeedPosts implements api.Client.
func (c *Client) GetFeedPosts(ctx context.Context, feedURLHash string, q api.PostQuery) (api.PostPage, error) {
	query := url.Values{}
	if q.PubSince > 0 {
		query.Set("pub_since", strconv.FormatInt(q.PubSince, 10))
	}
	if q.PubBefore > 0 {
		query.Set("pub_before", strconv.FormatInt(q.PubBefore, 10))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	var page api.PostPage
	if err := c.get(ctx, "feeds/"+feedURLHash+"/posts", query, nil, &page); err != nil {
		return api.PostPage{}, err
	}
	return page, nil
}

// GetPost implements api.Client.
func (c *Client) GetPost(ctx context.Context, feedURLHash, postIDHash string) (api.Post, error) {
	var post api.Post
	path := "feeds/" + feedURLHash + "/posts/" + postIDHash
	if err := c.get(ctx, path, nil, nil, &post); err != nil {
		return api.Post{}, err
	}
	return post, nil
}
