package integration_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notesd/core"
	"notesd/core/graph"
	"notesd/core/providers"
	"notesd/storage"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// IntegrationTestSuite wires the real provider and resource clients
// against mock Microsoft servers and drives the HTTP API end to end.
type IntegrationTestSuite struct {
	suite.Suite
	microsoft *MockMicrosoft
	api       *httptest.Server
	store     *storage.MemoryStore
	config    *core.Config
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.microsoft = NewMockMicrosoft()

	s.config = &core.Config{
		JWTSecret:   "integration-test-jwt-secret",
		FrontendURL: "http://frontend.test",
	}

	crypto, err := core.NewCryptoService(storage.TestEncryptionKey)
	s.Require().NoError(err)

	provider := providers.NewMicrosoftProvider(&providers.MicrosoftConfig{
		ClientID:     "integration-client-id",
		ClientSecret: "integration-client-secret",
		RedirectURI:  "http://localhost:8000/auth/callback",
		BaseURL:      s.microsoft.IdentityURL(),
	})

	graphFactory := graph.NewFactory(&graph.Config{
		BaseURL:  s.microsoft.GraphURL(),
		Fallback: graph.FallbackPropagate,
	}, zap.NewNop())

	s.store = storage.NewMemoryStore()
	tokens := core.NewTokenService(s.store, provider, crypto)
	authService := core.NewAuthService(provider, graphFactory.Client, tokens, s.store, s.config)
	server := core.NewServer(authService, s.config, zap.NewNop())

	s.api = httptest.NewServer(server.Router())
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.api != nil {
		s.api.Close()
	}
	if s.microsoft != nil {
		s.microsoft.Close()
	}
}

// beginLogin starts the flow and returns the issued authorization URL
// and state.
func (s *IntegrationTestSuite) beginLogin() (string, string) {
	resp, err := get(s.api.URL + "/auth/login")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var start core.LoginStart
	s.Require().NoError(decodeBody(resp, &start))
	s.Require().NotEmpty(start.AuthURL)
	s.Require().NotEmpty(start.State)

	return start.AuthURL, start.State
}

// completeLogin runs the callback with the given code and returns the
// redirect response.
func (s *IntegrationTestSuite) completeLogin(code, state string) *http.Response {
	resp, err := get(s.api.URL + "/auth/callback?code=" + code + "&state=" + state)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Require().Equal(http.StatusFound, resp.StatusCode)
	return resp
}

// sessionToken performs a full login and returns the session token from
// the callback redirect.
func (s *IntegrationTestSuite) sessionToken() string {
	_, state := s.beginLogin()
	resp := s.completeLogin(ValidCode, state)

	query, err := redirectQuery(resp)
	s.Require().NoError(err)
	s.Require().Empty(query.Get("error"))
	s.Require().NotEmpty(query.Get("token"))

	return query.Get("token")
}

func (s *IntegrationTestSuite) TestHealth() {
	resp, err := get(s.api.URL + "/")
	s.Require().NoError(err)

	var status map[string]string
	s.Require().NoError(decodeBody(resp, &status))
	s.Equal("healthy", status["status"])
}

func (s *IntegrationTestSuite) TestFullLoginFlow() {
	authURL, state := s.beginLogin()
	s.True(strings.HasPrefix(authURL, s.microsoft.IdentityURL()))
	s.Contains(authURL, "state="+state)

	sessionToken := s.sessionToken()

	// Session token authorizes the user endpoint.
	resp, err := authedGet(s.api.URL+"/api/user", sessionToken)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var user map[string]interface{}
	s.Require().NoError(decodeBody(resp, &user))
	s.Equal("integration_user_1", user["user_id"])
	s.Equal("ituser@contoso.com", user["email"])
	s.Equal("Integration User", user["name"])

	// Meetings come back from the Graph mock using the exchanged token.
	resp, err = authedGet(s.api.URL+"/api/meetings", sessionToken)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var meetings map[string][]core.Meeting
	s.Require().NoError(decodeBody(resp, &meetings))
	s.Require().Len(meetings["meetings"], 1)
	s.Equal("it_meeting_1", meetings["meetings"][0].ID)
	s.Equal("Architecture Review", meetings["meetings"][0].Subject)

	resp, err = authedGet(s.api.URL+"/api/meeting-notes/it_meeting_1", sessionToken)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var notes core.MeetingNotes
	s.Require().NoError(decodeBody(resp, &notes))
	s.Equal("it_meeting_1", notes.MeetingID)
	s.NotEmpty(notes.Notes)

	resp, err = postJSON(s.api.URL+"/api/export-notes", sessionToken, map[string]string{
		"meeting_id": "it_meeting_1",
		"notes":      notes.Notes,
	})
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var export core.NotesExport
	s.Require().NoError(decodeBody(resp, &export))
	s.Equal("meeting_notes_it_meeting_1.pdf", export.Filename)

	decoded, err := base64.StdEncoding.DecodeString(export.PDFBase64)
	s.Require().NoError(err)
	s.Contains(string(decoded), "Meeting Notes - it_meeting_1")
}

func (s *IntegrationTestSuite) TestCallbackProviderError() {
	resp, err := get(s.api.URL + "/auth/callback?error=access_denied")
	s.Require().NoError(err)
	resp.Body.Close()

	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal(s.config.FrontendURL+"/meeting-notes?error=access_denied", resp.Header.Get("Location"))
}

func (s *IntegrationTestSuite) TestCallbackRejectsBadCode() {
	_, state := s.beginLogin()
	resp := s.completeLogin("forged_code", state)

	query, err := redirectQuery(resp)
	s.Require().NoError(err)
	s.Equal("auth_failed", query.Get("error"))
}

func (s *IntegrationTestSuite) TestStateIsSingleUse() {
	_, state := s.beginLogin()
	s.completeLogin(ValidCode, state)

	second := s.completeLogin(ValidCode, state)
	query, err := redirectQuery(second)
	s.Require().NoError(err)
	s.Equal("invalid_state", query.Get("error"))
}

func (s *IntegrationTestSuite) TestExpiredBundleIsRefreshed() {
	sessionToken := s.sessionToken()

	// Force the stored bundle past its expiry. The encrypted refresh
	// token is kept as saved by the login flow.
	ctx := context.Background()
	bundle, err := s.store.Find(ctx, "integration_user_1")
	s.Require().NoError(err)
	bundle.ExpiresAt = time.Now().Add(-time.Minute)
	s.Require().NoError(s.store.Save(ctx, bundle))

	refreshesBefore := s.microsoft.RefreshCallCount()

	resp, err := authedGet(s.api.URL+"/api/meetings", sessionToken)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(refreshesBefore+1, s.microsoft.RefreshCallCount())

	// The refreshed bundle serves subsequent calls without another
	// round trip to the token endpoint.
	resp, err = authedGet(s.api.URL+"/api/meetings", sessionToken)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(refreshesBefore+1, s.microsoft.RefreshCallCount())
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
