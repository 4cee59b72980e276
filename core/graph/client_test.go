package graph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"notesd/core"
	"notesd/core/graph"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// graphFixture is an httptest stand-in for the Graph API. Failure of the
// filtered and unfiltered event queries is switchable per test.
type graphFixture struct {
	server         *httptest.Server
	failFiltered   bool
	failUnfiltered bool
	eventRequests  []string // raw queries, in order
}

func newGraphFixture() *graphFixture {
	f := &graphFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/me", f.handleMe)
	mux.HandleFunc("/me/events", f.handleEvents)

	f.server = httptest.NewServer(mux)
	return f
}

func (f *graphFixture) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer good-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"id":                "ms_user_1",
		"mail":              "user1@contoso.com",
		"userPrincipalName": "user1@contoso.onmicrosoft.com",
		"displayName":       "Contoso User One",
	})
}

func (f *graphFixture) handleEvents(w http.ResponseWriter, r *http.Request) {
	f.eventRequests = append(f.eventRequests, r.URL.RawQuery)

	filtered := r.URL.Query().Get("$filter") != ""
	if (filtered && f.failFiltered) || (!filtered && f.failUnfiltered) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"value": []map[string]interface{}{
			{"id": "evt_1", "subject": "Sync", "isOnlineMeeting": filtered},
		},
	})
}

func (f *graphFixture) client(mode graph.FallbackMode, token string) core.ResourceClient {
	factory := graph.NewFactory(&graph.Config{
		BaseURL:  f.server.URL,
		Fallback: mode,
	}, zap.NewNop())
	return factory.Client(token)
}

func TestGetUserInfo(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()

	profile, err := f.client(graph.FallbackPlaceholder, "good-token").GetUserInfo(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "ms_user_1", profile.ID)
	assert.Equal(t, "user1@contoso.com", profile.Mail)
	assert.Equal(t, "Contoso User One", profile.DisplayName)
}

func TestGetUserInfo_NonSuccess(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()

	_, err := f.client(graph.FallbackPlaceholder, "bad-token").GetUserInfo(context.Background())

	assert.ErrorIs(t, err, core.ErrProfileFetch)
}

func TestListMeetings_FilteredQuery(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()

	meetings, err := f.client(graph.FallbackPlaceholder, "good-token").ListMeetings(context.Background(), 5)

	assert.NoError(t, err)
	assert.Len(t, meetings, 1)
	assert.Len(t, f.eventRequests, 1)
	assert.Contains(t, f.eventRequests[0], "%24filter=")
	assert.Contains(t, f.eventRequests[0], "%24top=5")
}

func TestListMeetings_FallsBackToUnfiltered(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()
	f.failFiltered = true

	meetings, err := f.client(graph.FallbackPlaceholder, "good-token").ListMeetings(context.Background(), 5)

	assert.NoError(t, err)
	assert.Len(t, meetings, 1)
	assert.Len(t, f.eventRequests, 2)
	assert.NotContains(t, f.eventRequests[1], "%24filter=")
}

func TestListMeetings_PlaceholderWhenBothFail(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()
	f.failFiltered = true
	f.failUnfiltered = true

	meetings, err := f.client(graph.FallbackPlaceholder, "good-token").ListMeetings(context.Background(), 5)

	assert.NoError(t, err, "placeholder mode never surfaces fetch errors")
	assert.Len(t, meetings, 2)
	assert.Equal(t, "meeting_1", meetings[0].ID)
	assert.Equal(t, "meeting_2", meetings[1].ID)
}

func TestListMeetings_PropagateWhenBothFail(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()
	f.failFiltered = true
	f.failUnfiltered = true

	_, err := f.client(graph.FallbackPropagate, "good-token").ListMeetings(context.Background(), 5)

	assert.ErrorIs(t, err, core.ErrMeetingsFetch)
}

func TestGetMeetingNotes(t *testing.T) {
	f := newGraphFixture()
	defer f.server.Close()

	notes, err := f.client(graph.FallbackPlaceholder, "good-token").GetMeetingNotes(context.Background(), "meeting_42")

	assert.NoError(t, err)
	assert.Equal(t, "meeting_42", notes.MeetingID)
	assert.Contains(t, notes.Notes, "meeting_42")
	assert.Equal(t, "Teams Chat", notes.Source)
	assert.NotEmpty(t, notes.LastModified)
}
