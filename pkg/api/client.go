// Package api implements the HTTP client for the orgsync directory server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/tavre/orgsync/pkg/model"
)

// OrganizationsPath is the resource serving the authenticated user's
// organization list.
const OrganizationsPath = "/api/v1/user/organizations-light"

// StatusError reports a reachable server answering with a non-2xx status.
// Transport-level failures are returned as ordinary errors instead.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %s", e.Status)
}

// TokenProvider supplies the session token attached to authenticated requests.
type TokenProvider interface {
	SessionToken(ctx context.Context) (string, error)
}

// Client talks to the orgsync directory API.
type Client struct {
	ServerURL  *url.URL
	HTTPClient *http.Client
	Logger     *slog.Logger
	Tokens     TokenProvider
	limiter    *rate.Limiter
}

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	ServerURL string
	Tokens    TokenProvider
	Logger    *slog.Logger
	// RequestsPerSecond caps outgoing requests; zero means no limit.
	RequestsPerSecond float64
}

// NewClient creates a new API client instance.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	serverURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return &Client{
		ServerURL:  serverURL,
		HTTPClient: &http.Client{},
		Logger:     config.Logger,
		Tokens:     config.Tokens,
		limiter:    limiter,
	}, nil
}

type orgDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	// The endpoint returns more fields than the cache keeps; anything not
	// listed here is discarded on decode.
}

// FetchOrganizations retrieves the organization list for the authenticated
// user. When accessToken is non-empty it overrides the token provider.
// A non-2xx response yields a *StatusError so callers can tell it apart
// from transport failures.
func (c *Client) FetchOrganizations(ctx context.Context, accessToken string) ([]model.Organization, error) {
	token := accessToken
	if token == "" {
		if c.Tokens == nil {
			return nil, fmt.Errorf("no token provider configured")
		}
		var err error
		token, err = c.Tokens.SessionToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session token: %w", err)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.ServerURL.ResolveReference(&url.URL{Path: OrganizationsPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var dtos []orgDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	orgs := make([]model.Organization, 0, len(dtos))
	for _, dto := range dtos {
		orgs = append(orgs, model.Organization{
			ID:   dto.ID,
			Name: dto.Name,
			Role: model.Role(dto.Role),
		})
	}
	c.Logger.Debug("fetched organizations", "count", len(orgs))
	return orgs, nil
}

// Login exchanges a GitHub access token for an orgsync session token.
func (c *Client) Login(ctx context.Context, githubToken string) (token string, expiresAt int64, err error) {
	u := c.ServerURL.ResolveReference(&url.URL{Path: "/api/v1/auth/login"})
	body, err := json.Marshal(map[string]string{"github_token": githubToken})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("server error: %s: %s", resp.Status, string(respBytes))
	}

	var result struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Token == "" {
		return "", 0, fmt.Errorf("server returned an empty session token")
	}
	return result.Token, result.ExpiresAt, nil
}
