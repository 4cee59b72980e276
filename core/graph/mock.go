package graph

import (
	"context"
	"time"

	"notesd/core"
)

// Predefined test profiles keyed by the access tokens that resolve them.
var (
	Profile1 = &core.UserProfile{
		ID:                "ms_user_1",
		Mail:              "user1@contoso.com",
		UserPrincipalName: "user1@contoso.onmicrosoft.com",
		DisplayName:       "Contoso User One",
	}

	Profile2 = &core.UserProfile{
		ID:                "ms_user_2",
		Mail:              "", // mailbox-less account, principal name is the address
		UserPrincipalName: "user2@contoso.onmicrosoft.com",
		DisplayName:       "Contoso User Two",
	}

	Meeting1 = core.Meeting{
		ID:      "real_meeting_1",
		Subject: "Sprint Planning",
		Start:   core.MeetingTime{DateTime: "2026-08-28T09:00:00.0000000", TimeZone: "UTC"},
		End:     core.MeetingTime{DateTime: "2026-08-28T10:00:00.0000000", TimeZone: "UTC"},
		Attendees: []core.Attendee{
			{EmailAddress: core.AttendeeAddress{Name: "Contoso User One", Address: "user1@contoso.com"}},
		},
		IsOnlineMeeting:       true,
		OnlineMeetingProvider: "teamsForBusiness",
	}
)

// MockClient is a test implementation of core.ResourceClient. Bind records
// the access token it was constructed with, so tests can verify which
// token a call used.
type MockClient struct {
	Profiles map[string]*core.UserProfile // access token -> profile
	Meetings map[string][]core.Meeting    // access token -> meetings

	BoundToken string

	// track method calls for verification
	GetUserInfoCalls     int
	ListMeetingsCalls    int
	GetMeetingNotesCalls int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Profiles: map[string]*core.UserProfile{
			"mock_access_token_1":           Profile1,
			"mock_access_token_1_refreshed": Profile1,
			"mock_access_token_2":           Profile2,
			"mock_access_token_2_refreshed": Profile2,
		},
		Meetings: map[string][]core.Meeting{
			"mock_access_token_1":           {Meeting1},
			"mock_access_token_1_refreshed": {Meeting1},
		},
	}
}

// Bind satisfies core.ResourceClientFactory.
func (m *MockClient) Bind(accessToken string) core.ResourceClient {
	m.BoundToken = accessToken
	return m
}

func (m *MockClient) GetUserInfo(ctx context.Context) (*core.UserProfile, error) {
	m.GetUserInfoCalls++

	profile, ok := m.Profiles[m.BoundToken]
	if !ok {
		return nil, core.ErrProfileFetch
	}

	return profile, nil
}

func (m *MockClient) ListMeetings(ctx context.Context, limit int) ([]core.Meeting, error) {
	m.ListMeetingsCalls++

	meetings, ok := m.Meetings[m.BoundToken]
	if !ok {
		return nil, core.ErrMeetingsFetch
	}

	if limit < len(meetings) {
		meetings = meetings[:limit]
	}

	return meetings, nil
}

func (m *MockClient) GetMeetingNotes(ctx context.Context, meetingID string) (*core.MeetingNotes, error) {
	m.GetMeetingNotesCalls++

	return &core.MeetingNotes{
		MeetingID:    meetingID,
		Notes:        "mock notes for " + meetingID,
		Source:       "Teams Chat",
		LastModified: time.Now().Format(time.RFC3339),
	}, nil
}
