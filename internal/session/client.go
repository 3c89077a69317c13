package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// User is the resolved identity the rest of the system keys on.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is what the identity provider hands back on sign in/up.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// AuthError carries a provider-reported failure (bad credentials, existing
// account, invalid token).
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth provider returned status %d: %s", e.Status, e.Message)
}

// Client talks to the hosted identity provider (GoTrue-compatible REST
// API). Credential validation, token refresh, and session persistence all
// live on the provider side; this client only relays.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SignIn exchanges email/password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var sess Session
	if err := c.post(ctx, "/token?grant_type=password", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignUp registers a new account. The display name travels in the
// provider's user metadata.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	var sess Session
	if err := c.post(ctx, "/signup", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the token on the provider side.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.post(ctx, "/logout", token, nil, nil)
}

// ResetPassword triggers the provider's recovery email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.post(ctx, "/recover", "", map[string]string{"email": email}, nil)
}

// providerUser matches the provider's /user payload.
type providerUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

// UserFromToken resolves an access token into the user it belongs to.
func (c *Client) UserFromToken(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("session: building request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: resolving token: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("session: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Status: resp.StatusCode, Message: providerMessage(raw)}
	}

	var pu providerUser
	if err := json.Unmarshal(raw, &pu); err != nil {
		return nil, fmt.Errorf("session: decoding user: %w", err)
	}
	if _, err := uuid.Parse(pu.ID); err != nil {
		return nil, fmt.Errorf("session: provider returned invalid user id %q: %w", pu.ID, err)
	}
	return &User{ID: pu.ID, Email: pu.Email, Name: pu.Metadata.Name}, nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("session: encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("session: building request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session: calling provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("session: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthError{Status: resp.StatusCode, Message: providerMessage(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("session: decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// providerMessage pulls the human-readable error out of a provider body.
func providerMessage(raw []byte) string {
	var payload struct {
		Message  string `json:"message"`
		ErrorMsg string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.ErrorMsg != "" {
			return payload.ErrorMsg
		}
	}
	return string(raw)
}
