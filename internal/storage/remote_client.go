// ABOUTME: HTTP client for the remote listings board API.
// ABOUTME: Lists, creates, updates, and deletes ads with classified retry on every call.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389-research/adboard/internal/models"
)

const adsPath = "/api/Advertisements"

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource func() string

// RemoteClient talks to the board's REST API.
type RemoteClient struct {
	apiURL string
	tokens TokenSource
	retry  *Retrier
	client *http.Client
	logger *slog.Logger
}

// ClientOption configures optional RemoteClient dependencies.
type ClientOption func(*RemoteClient)

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(r *RemoteClient) {
		r.tokens = ts
	}
}

// WithRetrier replaces the default retry policy.
func WithRetrier(rt *Retrier) ClientOption {
	return func(r *RemoteClient) {
		r.retry = rt
	}
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(r *RemoteClient) {
		r.client = c
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(r *RemoteClient) {
		r.logger = l
	}
}

// NewRemoteClient creates a client for the API rooted at apiURL.
func NewRemoteClient(apiURL string, opts ...ClientOption) *RemoteClient {
	apiURL = strings.TrimRight(apiURL, "/")
	apiURL = strings.TrimSuffix(apiURL, "/api")
	r := &RemoteClient{
		apiURL: apiURL,
		retry:  NewRetrier(),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// remoteAdPatch maps the update endpoint's possibly-partial response.
type remoteAdPatch struct {
	Title            *string `json:"title"`
	ShortDescription *string `json:"shortDescription"`
	Category         *string `json:"category"`
	Location         *string `json:"location"`
	ImageURL         *string `json:"imageUrl"`
}

// ListAds fetches one page for the given signature.
func (r *RemoteClient) ListAds(ctx context.Context, sig models.QuerySignature) (models.PagedResult, error) {
	q := listQuery(sig)

	var result models.PagedResult
	err := r.retry.Do(ctx, "list ads", func(ctx context.Context) error {
		result = models.PagedResult{}
		return r.doJSON(ctx, http.MethodGet, adsPath+"?"+q.Encode(), nil, &result)
	})
	if err != nil {
		return models.PagedResult{}, err
	}
	if result.Items == nil {
		result.Items = []models.Ad{}
	}
	return result, nil
}

// listQuery builds the query string. Geo parameters only travel as a triple.
func listQuery(sig models.QuerySignature) url.Values {
	sig = sig.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(sig.Page))
	q.Set("pageSize", strconv.Itoa(sig.PageSize))
	if sig.Search != "" {
		q.Set("search", sig.Search)
	}
	if sig.Category != "" {
		q.Set("category", sig.Category)
	}
	if sig.Location != "" {
		q.Set("location", sig.Location)
	}
	if sig.HasGeo {
		q.Set("lat", strconv.FormatFloat(sig.Lat, 'f', -1, 64))
		q.Set("lng", strconv.FormatFloat(sig.Lng, 'f', -1, 64))
		q.Set("radiusKm", strconv.FormatFloat(sig.RadiusKm, 'f', -1, 64))
	}
	return q
}

// CreateAd posts a new ad and returns the server's record.
func (r *RemoteClient) CreateAd(ctx context.Context, in models.AdCreate) (models.Ad, error) {
	var created models.Ad
	err := r.retry.Do(ctx, "create ad", func(ctx context.Context) error {
		created = models.Ad{}
		return r.doJSON(ctx, http.MethodPost, adsPath, in, &created)
	})
	if err != nil {
		return models.Ad{}, err
	}
	return created, nil
}

// UpdateAd sends the changed fields and returns whatever fields the server echoed.
func (r *RemoteClient) UpdateAd(ctx context.Context, id string, in models.AdUpdate) (models.AdPatch, error) {
	var resp remoteAdPatch
	err := r.retry.Do(ctx, "update ad", func(ctx context.Context) error {
		resp = remoteAdPatch{}
		return r.doJSON(ctx, http.MethodPut, adsPath+"/"+url.PathEscape(id), in, &resp)
	})
	if err != nil {
		return models.AdPatch{}, err
	}
	return models.AdPatch{
		Title:            resp.Title,
		ShortDescription: resp.ShortDescription,
		Category:         resp.Category,
		Location:         resp.Location,
		ImageURL:         resp.ImageURL,
	}, nil
}

// DeleteAd removes an ad by id.
func (r *RemoteClient) DeleteAd(ctx context.Context, id string) error {
	return r.retry.Do(ctx, "delete ad", func(ctx context.Context) error {
		return r.doJSON(ctx, http.MethodDelete, adsPath+"/"+url.PathEscape(id), nil, nil)
	})
}

// Login exchanges credentials for a bearer token.
func (r *RemoteClient) Login(ctx context.Context, username, password string) (models.LoginResult, error) {
	var res models.LoginResult
	err := r.retry.Do(ctx, "login", func(ctx context.Context) error {
		res = models.LoginResult{}
		return r.doJSON(ctx, http.MethodPost, "/api/auth/login", models.Login{Username: username, Password: password}, &res)
	})
	if err != nil {
		return models.LoginResult{}, err
	}
	if res.Token == "" {
		return models.LoginResult{}, fmt.Errorf("login response carried no token")
	}
	if res.UserName == "" {
		res.UserName = username
	}
	return res, nil
}

// Signup registers a new account. It does not sign in.
func (r *RemoteClient) Signup(ctx context.Context, username, password string) error {
	body := models.Signup{UserName: username, Password: password}
	return r.retry.Do(ctx, "signup", func(ctx context.Context) error {
		return r.doJSON(ctx, http.MethodPost, "/api/auth/signup", body, nil)
	})
}

// doJSON performs one attempt. out may be nil; an empty body leaves it untouched.
func (r *RemoteClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.tokens != nil {
		if token := r.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &TransportError{Err: err, Canceled: ctx.Err() != nil}
	}
	defer func() { _ = resp.Body.Close() }()

	r.logger.Debug("remote call", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
