package providers

import (
	"context"

	"notesd/core"
)

// Predefined test authorization codes
const (
	ValidCode1 = "mock_auth_code_1"
	ValidCode2 = "mock_auth_code_2"
)

// Predefined test OAuth tokens
var (
	Tokens1 = &core.OAuthTokens{
		AccessToken:  "mock_access_token_1",
		RefreshToken: "mock_refresh_token_1",
		ExpiresIn:    3600,
	}

	Tokens2 = &core.OAuthTokens{
		AccessToken:  "mock_access_token_2",
		RefreshToken: "mock_refresh_token_2",
		ExpiresIn:    3600,
	}

	Tokens1Refreshed = &core.OAuthTokens{
		AccessToken:  "mock_access_token_1_refreshed",
		RefreshToken: "mock_refresh_token_1", // Same refresh token
		ExpiresIn:    3600,
	}

	// Tokens2Refreshed omits the refresh token; callers must keep the old one.
	Tokens2Refreshed = &core.OAuthTokens{
		AccessToken:  "mock_access_token_2_refreshed",
		RefreshToken: "",
		ExpiresIn:    3600,
	}
)

// MockProvider is a test implementation of core.IdentityProvider
type MockProvider struct {
	codeToTokens    map[string]*core.OAuthTokens
	refreshToTokens map[string]*core.OAuthTokens

	// track method calls for verification
	AuthorizationURLCalls   int
	ExchangeCodeCalls       int
	RefreshAccessTokenCalls int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		codeToTokens: map[string]*core.OAuthTokens{
			ValidCode1: Tokens1,
			ValidCode2: Tokens2,
		},

		refreshToTokens: map[string]*core.OAuthTokens{
			Tokens1.RefreshToken: Tokens1Refreshed,
			Tokens2.RefreshToken: Tokens2Refreshed,
		},
	}
}

func (m *MockProvider) AuthorizationURL(state string) string {
	m.AuthorizationURLCalls++
	return "https://mock.test/authorize?state=" + state
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*core.OAuthTokens, error) {
	m.ExchangeCodeCalls++

	tokens, ok := m.codeToTokens[code]
	if !ok {
		return nil, core.ErrAuthExchange
	}

	return tokens, nil
}

func (m *MockProvider) RefreshAccessToken(ctx context.Context, refreshToken string) (*core.OAuthTokens, error) {
	m.RefreshAccessTokenCalls++

	tokens, ok := m.refreshToTokens[refreshToken]
	if !ok {
		return nil, core.ErrRefresh
	}

	return tokens, nil
}
