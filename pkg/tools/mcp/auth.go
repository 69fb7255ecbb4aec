package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenProvider supplies authentication headers for MCP server requests.
type TokenProvider interface {
	// Headers returns the HTTP headers to include in MCP requests.
	Headers(ctx context.Context) (map[string]string, error)
}

// ClientCredentials obtains access tokens via the OAuth 2.0
// client_credentials grant. Tokens are cached and refreshed once 80% of
// the token lifetime has elapsed. A failed refresh falls back to the
// cached token while it remains valid.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	mu         sync.Mutex
	token      string
	expiry     time.Time
	refreshAt  time.Time
	httpClient *http.Client
	now        func() time.Time
}

// NewClientCredentials creates a ClientCredentials token provider.
func NewClientCredentials(tokenURL, clientID, clientSecret string, scopes []string) *ClientCredentials {
	return &ClientCredentials{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
	}
}

// Headers returns an Authorization header with a Bearer token.
func (c *ClientCredentials) Headers(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.refreshAt) {
		return map[string]string{"Authorization": "Bearer " + c.token}, nil
	}

	token, expiresIn, err := c.fetchToken(ctx)
	if err != nil {
		if c.token != "" && now.Before(c.expiry) {
			return map[string]string{"Authorization": "Bearer " + c.token}, nil
		}
		return nil, fmt.Errorf("acquiring OAuth token: %w", err)
	}

	c.token = token
	c.expiry = now.Add(time.Duration(expiresIn) * time.Second)
	c.refreshAt = now.Add(time.Duration(float64(expiresIn)*0.8) * time.Second)

	return map[string]string{"Authorization": "Bearer " + c.token}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *ClientCredentials) fetchToken(ctx context.Context) (string, int, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}
	if len(c.Scopes) > 0 {
		form.Set("scope", strings.Join(c.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}
	return tr.AccessToken, tr.ExpiresIn, nil
}
