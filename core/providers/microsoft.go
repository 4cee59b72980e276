package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notesd/core"
)

// DefaultScopes are the Graph permissions the service requests.
var DefaultScopes = []string{
	"https://graph.microsoft.com/OnlineMeetings.Read",
	"https://graph.microsoft.com/Notes.Read",
	"https://graph.microsoft.com/Chat.Read",
	"https://graph.microsoft.com/User.Read",
}

const defaultBaseURL = "https://login.microsoftonline.com"

type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURI  string
	Scopes       []string
	BaseURL      string // override for tests
	Timeout      time.Duration
}

type MicrosoftProvider struct {
	config     *MicrosoftConfig
	httpClient *http.Client
}

func NewMicrosoftProvider(config *MicrosoftConfig) *MicrosoftProvider {
	cfg := *config
	if cfg.TenantID == "" {
		cfg.TenantID = "common"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &MicrosoftProvider{
		config:     &cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type microsoftTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AuthorizationURL composes the tenant's authorize endpoint with the
// configured client, redirect URI, space-joined scopes, and the given state.
func (m *MicrosoftProvider) AuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", m.config.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", m.config.RedirectURI)
	params.Set("scope", strings.Join(m.config.Scopes, " "))
	params.Set("state", state)
	params.Set("response_mode", "query")

	return fmt.Sprintf("%s/%s/oauth2/v2.0/authorize?%s", m.config.BaseURL, m.config.TenantID, params.Encode())
}

func (m *MicrosoftProvider) ExchangeCode(ctx context.Context, code string) (*core.OAuthTokens, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", m.config.ClientID)
	data.Set("client_secret", m.config.ClientSecret)
	data.Set("redirect_uri", m.config.RedirectURI)
	data.Set("scope", strings.Join(m.config.Scopes, " "))

	return m.postTokenEndpoint(ctx, data, core.ErrAuthExchange)
}

func (m *MicrosoftProvider) RefreshAccessToken(ctx context.Context, refreshToken string) (*core.OAuthTokens, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", m.config.ClientID)
	data.Set("client_secret", m.config.ClientSecret)
	data.Set("scope", strings.Join(m.config.Scopes, " "))

	return m.postTokenEndpoint(ctx, data, core.ErrRefresh)
}

func (m *MicrosoftProvider) postTokenEndpoint(ctx context.Context, data url.Values, sentinel error) (*core.OAuthTokens, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", m.config.BaseURL, m.config.TenantID)
	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		tokenURL,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, string(body))
	}

	var tokenResp microsoftTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}

	return &core.OAuthTokens{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}
