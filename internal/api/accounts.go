package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vbonduro/hondadog/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	if err := c.sendJSON(ctx, "login", http.MethodPost, "auth/login", "", nil, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login: backend returned no access token")
	}
	return resp.AccessToken, nil
}

func (c *Client) Register(ctx context.Context, u *domain.User) (*domain.User, error) {
	var out domain.User
	if err := c.sendJSON(ctx, "register", http.MethodPost, "auth/register", "", nil, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := c.getJSON(ctx, "me", "auth/me", nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var out domain.User
	if err := c.getJSON(ctx, "get_user", idPath("users", id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMe(ctx context.Context, token string, u *domain.User) (*domain.User, error) {
	var out domain.User
	if err := c.sendJSON(ctx, "update_me", http.MethodPut, "users/me", token, nil, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
