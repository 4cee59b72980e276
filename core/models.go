package core

import "time"

// TokenBundle holds the Microsoft tokens stored for one external user.
// The refresh token is encrypted at rest; ExpiresAt is derived from the
// provider's reported lifetime at issuance or refresh time.
type TokenBundle struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserProfile is the Graph /me payload subset this service relies on.
type UserProfile struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// EmailAddress returns the user's mail address, falling back to the
// principal name for accounts without a mailbox.
func (p *UserProfile) EmailAddress() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// Meeting is a calendar event record as returned by the Graph events API.
type Meeting struct {
	ID                    string      `json:"id"`
	Subject               string      `json:"subject"`
	Start                 MeetingTime `json:"start"`
	End                   MeetingTime `json:"end"`
	Attendees             []Attendee  `json:"attendees"`
	IsOnlineMeeting       bool        `json:"isOnlineMeeting"`
	OnlineMeetingProvider string      `json:"onlineMeetingProvider"`
}

type MeetingTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type Attendee struct {
	EmailAddress AttendeeAddress `json:"emailAddress"`
}

type AttendeeAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// MeetingNotes is the notes record for a single meeting.
type MeetingNotes struct {
	MeetingID    string `json:"meeting_id"`
	Notes        string `json:"notes"`
	Source       string `json:"source"`
	LastModified string `json:"last_modified"`
}

// NotesExport is the downloadable artifact produced by the export endpoint.
type NotesExport struct {
	PDFBase64 string `json:"pdf_base64"`
	Filename  string `json:"filename"`
}
