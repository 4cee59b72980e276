package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LoginStart is what the frontend needs to begin the consent flow.
type LoginStart struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// AuthService orchestrates the login flow and the authenticated data paths.
type AuthService struct {
	provider  IdentityProvider
	resources ResourceClientFactory
	tokens    *TokenService
	states    StateStore
	config    *Config
}

func NewAuthService(provider IdentityProvider, resources ResourceClientFactory, tokens *TokenService, states StateStore, config *Config) *AuthService {
	return &AuthService{
		provider:  provider,
		resources: resources,
		tokens:    tokens,
		states:    states,
		config:    config,
	}
}

// BeginLogin issues a fresh login state and builds the authorization URL
// the client should redirect the user to.
func (s *AuthService) BeginLogin(ctx context.Context) (*LoginStart, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	if err := s.states.SaveState(ctx, state, time.Now().Add(StateTTL)); err != nil {
		return nil, fmt.Errorf("failed to save login state: %w", err)
	}

	return &LoginStart{
		AuthURL: s.provider.AuthorizationURL(state),
		State:   state,
	}, nil
}

// CompleteLogin handles the provider callback and returns a session token.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state string) (string, error) {
	// 1. The state must be one we issued; states are single use.
	if err := s.states.ConsumeState(ctx, state); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidState
		}
		return "", fmt.Errorf("failed to consume login state: %w", err)
	}

	// 2. Exchange the authorization code for provider tokens
	tokens, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	// 3. Fetch the user's profile with the fresh access token
	profile, err := s.resources(tokens.AccessToken).GetUserInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get user info: %w", err)
	}

	// 4. Store the token bundle for later API calls
	if err := s.tokens.Store(ctx, profile.ID, tokens); err != nil {
		return "", err
	}

	// 5. Issue the session token the frontend will present
	session, err := IssueSessionToken(profile, s.config)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return session, nil
}

// Meetings lists the user's meetings, refreshing the stored access token
// when needed.
func (s *AuthService) Meetings(ctx context.Context, userID string, limit int) ([]Meeting, error) {
	access, err := s.tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.resources(access).ListMeetings(ctx, limit)
}

// MeetingNotes fetches the notes record for one meeting.
func (s *AuthService) MeetingNotes(ctx context.Context, userID, meetingID string) (*MeetingNotes, error) {
	access, err := s.tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.resources(access).GetMeetingNotes(ctx, meetingID)
}
