package core

import (
	"context"
	"errors"
)

var (
	ErrAuthExchange  = errors.New("authorization code exchange failed")
	ErrRefresh       = errors.New("provider token refresh failed")
	ErrProfileFetch  = errors.New("profile fetch failed")
	ErrMeetingsFetch = errors.New("meetings fetch failed")
)

// OAuthTokens represents the tokens returned by the identity provider
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type IdentityProvider interface {
	// AuthorizationURL builds the provider's consent URL for the given
	// state. Pure construction, no side effects.
	AuthorizationURL(state string) string

	ExchangeCode(ctx context.Context, code string) (*OAuthTokens, error)

	// RefreshAccessToken exchanges a refresh token for fresh tokens. The
	// returned refresh token may be empty; callers keep the prior one then.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*OAuthTokens, error)
}

// ResourceClient is an authenticated client for the external resource API,
// bound to a single bearer access token.
type ResourceClient interface {
	GetUserInfo(ctx context.Context) (*UserProfile, error)

	ListMeetings(ctx context.Context, limit int) ([]Meeting, error)

	GetMeetingNotes(ctx context.Context, meetingID string) (*MeetingNotes, error)
}

// ResourceClientFactory builds a ResourceClient bound to an access token.
type ResourceClientFactory func(accessToken string) ResourceClient
