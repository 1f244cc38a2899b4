// Package api implements the HTTP client for the LinkDeck backend.
// Authenticated endpoints go through a dedicated *http.Client whose
// transport attaches the access token and retries once after a refresh;
// login, register and refresh use a bare client so a refresh can never
// trigger another refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/client/models"
	"github.com/dmitrijs2005/linkdeck/internal/common"
)

type Client struct {
	baseURL string
	authed  *http.Client
	bare    *http.Client
}

// New constructs a Client. authTransport handles bearer injection and the
// 401-refresh-retry cycle for authenticated endpoints; it is not used for
// the auth endpoints themselves.
func New(baseURL string, timeout time.Duration, authTransport http.RoundTripper) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		authed:  &http.Client{Timeout: timeout, Transport: authTransport},
		bare:    &http.Client{Timeout: timeout},
	}
}

// envelope is the server's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Authenticated, error) {
	var out models.Authenticated
	err := c.do(ctx, c.bare, http.MethodPost, "/auth/login",
		&credentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account and returns it already authenticated.
func (c *Client) Register(ctx context.Context, email, password, name string) (*models.Authenticated, error) {
	var out models.Authenticated
	err := c.do(ctx, c.bare, http.MethodPost, "/auth/register",
		&credentialsRequest{Email: email, Password: password, Name: name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new token pair. A 401 here means
// the refresh token itself is no longer accepted.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Authenticated, error) {
	var out models.Authenticated
	err := c.do(ctx, c.bare, http.MethodPost, "/auth/refresh",
		&refreshRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, err
	}
	return &out, nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, c.authed, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile updates name and/or avatar; nil fields are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, name, avatar *string) (*models.User, error) {
	var out models.User
	err := c.do(ctx, c.authed, http.MethodPut, "/auth/me",
		&updateProfileRequest{Name: name, Avatar: avatar}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword verifies the current password and sets a new one.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return c.do(ctx, c.authed, http.MethodPut, "/auth/password",
		&changePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}, nil)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorServerUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 500 {
		return fmt.Errorf("%w: malformed response", common.ErrorServerUnavailable)
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, env.Message)
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: malformed response", common.ErrorServerUnavailable)
		}
	}
	return nil
}

// statusError maps an HTTP status to one of the shared sentinel errors,
// keeping the server's message where it carries useful detail.
func statusError(status int, message string) error {
	switch {
	case status == http.StatusBadRequest:
		if message != "" {
			return fmt.Errorf("%w: %s", common.ErrorValidation, message)
		}
		return common.ErrorValidation
	case status == http.StatusUnauthorized:
		if message != "" {
			return fmt.Errorf("%w: %s", common.ErrorUnauthorized, message)
		}
		return common.ErrorUnauthorized
	case status == http.StatusForbidden:
		return common.ErrorAccountInactive
	case status == http.StatusNotFound:
		return common.ErrorNotFound
	case status == http.StatusConflict:
		return common.ErrorAlreadyExists
	default:
		return common.ErrorServerUnavailable
	}
}
