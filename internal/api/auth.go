// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeranaias/docchat/internal/model"
)

// Credentials is the body of POST /api/auth/signin.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupData is the body of POST /api/auth/signup.
type SignupData struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is a successful sign-in or sign-up.
type AuthResponse struct {
	AccessToken string
	TokenType   string
	User        model.User
}

type userWire struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

func (w userWire) toModel() model.User {
	return model.User{
		ID:        w.ID,
		Email:     w.Email,
		Username:  w.Username,
		CreatedAt: parseServerTime(w.CreatedAt),
	}
}

type authWire struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userWire `json:"user"`
}

// SignIn exchanges an email and password for a bearer token. A 401 here
// means bad credentials and is reported as AuthExpired like any other 401.
func (c *Client) SignIn(ctx context.Context, creds Credentials) Result[AuthResponse] {
	return c.authenticate(ctx, "/api/auth/signin", creds)
}

// SignUp creates an account and returns its first token. A taken email or
// username comes back as a 400 whose Detail says which.
func (c *Client) SignUp(ctx context.Context, data SignupData) Result[AuthResponse] {
	return c.authenticate(ctx, "/api/auth/signup", data)
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) Result[AuthResponse] {
	var wire authWire
	if err := c.doJSON(ctx, http.MethodPost, path, body, &wire); err != nil {
		return Fail[AuthResponse](err)
	}
	if wire.AccessToken == "" {
		return Fail[AuthResponse](fmt.Errorf("%w: missing access_token", ErrMalformedResponse))
	}
	return Ok(AuthResponse{
		AccessToken: wire.AccessToken,
		TokenType:   wire.TokenType,
		User:        wire.User.toModel(),
	})
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) Result[model.User] {
	var wire userWire
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &wire); err != nil {
		return Fail[model.User](err)
	}
	return Ok(wire.toModel())
}
