package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"zetta/internal/pkg/apiclient"
	"zetta/internal/pkg/validator"
)

const (
	mePath     = "/auth/me"
	logoutPath = "/auth/logout"
)

// Client asks the backend who the bearer token belongs to.
type Client struct {
	api *apiclient.Client
}

func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var body struct {
		User *User `json:"user"`
	}
	if err := c.api.Get(ctx, mePath, &body); err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	if body.User == nil {
		return nil, ErrInvalidUser
	}
	if err := validator.Check(body.User); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return body.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.api.Post(ctx, logoutPath, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
