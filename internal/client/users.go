package client

import (
	"context"
	"fmt"
	"net/http"

	"carrethree/internal/cart"
	"carrethree/internal/transport"

	"github.com/google/uuid"
)

func identityOf(resp transport.AuthResponse) (cart.Identity, error) {
	userID, err := uuid.Parse(resp.User.ID)
	if err != nil {
		return cart.Identity{}, fmt.Errorf("%w: invalid user id in auth response", cart.ErrNetwork)
	}
	return cart.Identity{
		UserID:       userID,
		Name:         resp.User.Name,
		Email:        resp.User.Email,
		IsAdmin:      resp.User.IsAdmin,
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Register creates an account and returns its signed-in identity
func (c *Client) Register(ctx context.Context, name, email, password string) (cart.Identity, error) {
	var resp transport.AuthResponse
	req := transport.RegisterRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/users/register", "", "", req, &resp); err != nil {
		return cart.Identity{}, err
	}
	return identityOf(resp)
}

// Login exchanges credentials for an identity
func (c *Client) Login(ctx context.Context, email, password string) (cart.Identity, error) {
	var resp transport.AuthResponse
	req := transport.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", "", "", req, &resp); err != nil {
		return cart.Identity{}, err
	}
	return identityOf(resp)
}

// Refresh exchanges the refresh token of id for a new access token
func (c *Client) Refresh(ctx context.Context, id cart.Identity) (cart.Identity, error) {
	var resp transport.RefreshResponse
	req := transport.RefreshRequest{RefreshToken: id.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/users/refresh", "", "", req, &resp); err != nil {
		return cart.Identity{}, err
	}
	id.Token = resp.AccessToken
	return id, nil
}

// Logout revokes the refresh token of id on the server
func (c *Client) Logout(ctx context.Context, id cart.Identity) error {
	req := transport.RefreshRequest{RefreshToken: id.RefreshToken}
	return c.do(ctx, http.MethodPost, "/api/users/logout", "", id.Token, req, nil)
}
