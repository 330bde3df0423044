package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// authUser is the GoTrue representation of an authenticated user.
type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authResponse struct {
	AccessToken string   `json:"access_token"`
	User        authUser `json:"user"`
}

// signUp registers a credential record with GoTrue. The metadata lands in
// the user record and is mirrored into the profiles table by the project's
// on-signup trigger.
func (c *Client) signUp(ctx context.Context, email, password string, metadata map[string]any) (*authResponse, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}
	return c.authPost(ctx, "/auth/v1/signup", payload)
}

// signIn exchanges credentials for an access token using the password grant.
func (c *Client) signIn(ctx context.Context, email, password string) (*authResponse, error) {
	payload := map[string]any{"email": email, "password": password}
	return c.authPost(ctx, "/auth/v1/token?grant_type=password", payload)
}

// signOut revokes the session behind an access token.
func (c *Client) signOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return restError(resp.StatusCode, body)
	}
	return nil
}

// currentUser fetches the user behind an access token.
func (c *Client) currentUser(ctx context.Context, accessToken string) (*authUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, restError(resp.StatusCode, body)
	}

	var user authUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

func (c *Client) authPost(ctx context.Context, path string, payload any) (*authResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, restError(resp.StatusCode, respBody)
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return nil, fmt.Errorf("unmarshal auth response: %w", err)
	}
	return &auth, nil
}
