package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockMicrosoft fakes the identity platform token endpoint and the Graph
// API for end-to-end tests.
type MockMicrosoft struct {
	identity *httptest.Server
	graph    *httptest.Server

	mu            sync.Mutex
	exchangeCalls int
	refreshCalls  int

	// access tokens currently accepted by the Graph side
	validAccess map[string]bool
}

const (
	ValidCode    = "integration_code_1"
	AccessToken  = "integration_access_1"
	RefreshToken = "integration_refresh_1"

	RefreshedAccessToken = "integration_access_1_refreshed"
)

func NewMockMicrosoft() *MockMicrosoft {
	m := &MockMicrosoft{
		validAccess: map[string]bool{
			AccessToken:          true,
			RefreshedAccessToken: true,
		},
	}

	identityMux := http.NewServeMux()
	identityMux.HandleFunc("/common/oauth2/v2.0/token", m.handleToken)
	m.identity = httptest.NewServer(identityMux)

	graphMux := http.NewServeMux()
	graphMux.HandleFunc("/me", m.handleMe)
	graphMux.HandleFunc("/me/events", m.handleEvents)
	m.graph = httptest.NewServer(graphMux)

	return m
}

func (m *MockMicrosoft) IdentityURL() string { return m.identity.URL }
func (m *MockMicrosoft) GraphURL() string    { return m.graph.URL }

func (m *MockMicrosoft) ExchangeCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeCalls
}

func (m *MockMicrosoft) RefreshCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

func (m *MockMicrosoft) Close() {
	m.identity.Close()
	m.graph.Close()
}

func (m *MockMicrosoft) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.ParseForm()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		m.exchangeCalls++
		if r.PostForm.Get("code") == ValidCode {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  AccessToken,
				"refresh_token": RefreshToken,
				"expires_in":    3600,
				"token_type":    "Bearer",
			})
			return
		}
	case "refresh_token":
		m.refreshCalls++
		if r.PostForm.Get("refresh_token") == RefreshToken {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  RefreshedAccessToken,
				"refresh_token": RefreshToken,
				"expires_in":    3600,
				"token_type":    "Bearer",
			})
			return
		}
	}

	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
}

func (m *MockMicrosoft) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if len(auth) < 8 || auth[:7] != "Bearer " {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validAccess[auth[7:]]
}

func (m *MockMicrosoft) handleMe(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"id":                "integration_user_1",
		"mail":              "ituser@contoso.com",
		"userPrincipalName": "ituser@contoso.onmicrosoft.com",
		"displayName":       "Integration User",
	})
}

func (m *MockMicrosoft) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"value": []map[string]interface{}{
			{
				"id":              "it_meeting_1",
				"subject":         "Architecture Review",
				"isOnlineMeeting": true,
			},
		},
	})
}
