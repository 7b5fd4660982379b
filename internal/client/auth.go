package client

import (
	"context"
	"net/http"

	"github.com/memberdesk/memberdesk/internal/models"
)

// Login exchanges credentials for a bearer token. The stored token is not sent
// and a 401 here never triggers the unauthorized hook.
func (c *Client) Login(ctx context.Context, identifier, password string) (*models.LoginResponse, error) {
	reqBody := models.LoginRequest{
		EmailOrPhone: identifier,
		Password:     password,
	}

	var resp models.LoginResponse
	if err := c.Request(ctx, http.MethodPost, pathLogin, reqBody, nil, &resp, WithoutAuth()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes token on the server. An empty token falls back to the stored one.
func (c *Client) Logout(ctx context.Context, token string) (*models.MessageResponse, error) {
	var opts []RequestOption
	if token != "" {
		opts = append(opts, WithBearer(token))
	}

	var resp models.MessageResponse
	if err := c.Request(ctx, http.MethodPost, pathLogout, nil, nil, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser returns the profile behind the given token (or the stored one when empty)
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var opts []RequestOption
	if token != "" {
		opts = append(opts, WithBearer(token))
	}

	var user models.User
	if err := c.Request(ctx, http.MethodGet, pathCurrentUser, nil, nil, &user, opts...); err != nil {
		return nil, err
	}
	return &user, nil
}
