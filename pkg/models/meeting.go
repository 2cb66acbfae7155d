// Package models defines the core domain models for conversational meeting scheduling.
package models

import (
	"errors"
	"time"
)

// MeetingType distinguishes in-person meetings from video-conference ones.
type MeetingType string

const (
	MeetingTypePhysical MeetingType = "physical"
	MeetingTypeOnline   MeetingType = "online"
)

// Valid reports whether the type is a known meeting type.
func (t MeetingType) Valid() bool {
	return t == MeetingTypePhysical || t == MeetingTypeOnline
}

// MeetingStatus represents the lifecycle state of the meeting under
// construction. It only ever advances.
type MeetingStatus string

const (
	MeetingStatusDraft           MeetingStatus = "draft"
	MeetingStatusPendingApproval MeetingStatus = "pending_approval"
	MeetingStatusApproved        MeetingStatus = "approved"
	MeetingStatusCreated         MeetingStatus = "created"
)

var statusRank = map[MeetingStatus]int{
	MeetingStatusDraft:           0,
	MeetingStatusPendingApproval: 1,
	MeetingStatusApproved:        2,
	MeetingStatusCreated:         3,
}

// Rank returns the position of the status in the lifecycle, or -1 for an
// unknown status.
func (s MeetingStatus) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}

	return rank
}

// Attendee is one invited participant.
type Attendee struct {
	Email          string `json:"email"                     validate:"required,email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	IsValidated    bool   `json:"is_validated"`
	IsRequired     bool   `json:"is_required"`
}

// MeetingData is the progressively-completed record describing the meeting
// being scheduled. Fields stay empty until the conversation fills them in.
type MeetingData struct {
	ID          string        `json:"id"                     validate:"required"`
	Title       string        `json:"title,omitempty"`
	Type        MeetingType   `json:"type,omitempty"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	Location    string        `json:"location,omitempty"`
	Attendees   []Attendee    `json:"attendees"`
	Agenda      string        `json:"agenda,omitempty"`
	MeetingLink string        `json:"meeting_link,omitempty"`
	Status      MeetingStatus `json:"status"`
}

// MeetingUpdate is a partial update merged into MeetingData. Nil fields are
// left untouched; a non-nil Attendees slice replaces the whole list.
type MeetingUpdate struct {
	Title       *string        `json:"title,omitempty"`
	Type        *MeetingType   `json:"type,omitempty"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	Location    *string        `json:"location,omitempty"`
	Attendees   []Attendee     `json:"attendees,omitempty"`
	Agenda      *string        `json:"agenda,omitempty"`
	MeetingLink *string        `json:"meeting_link,omitempty"`
	Status      *MeetingStatus `json:"status,omitempty"`
}

var (
	// ErrMeetingTypeLocked is returned when an update tries to change the
	// meeting type after it was set.
	ErrMeetingTypeLocked = errors.New("meeting type is locked")

	// ErrStatusRegression is returned when an update tries to move the
	// meeting status backwards.
	ErrStatusRegression = errors.New("meeting status cannot move backwards")

	// ErrUnknownMeetingType is returned for a type outside the enum.
	ErrUnknownMeetingType = errors.New("unknown meeting type")
)

// Apply shallow-merges the update into the meeting data. The meeting type is
// locked after its first successful set, and status only advances. The
// attendee list is replaced atomically, never merged entry by entry. The
// whole update is checked before any field is written; a rejected update
// leaves the data untouched.
func (m *MeetingData) Apply(update MeetingUpdate) error {
	if update.Type != nil {
		if !update.Type.Valid() {
			return ErrUnknownMeetingType
		}

		if m.Type != "" && m.Type != *update.Type {
			return ErrMeetingTypeLocked
		}
	}

	if update.Status != nil {
		if update.Status.Rank() < 0 {
			return errors.New("unknown meeting status")
		}

		if update.Status.Rank() < m.Status.Rank() {
			return ErrStatusRegression
		}
	}

	if update.Type != nil {
		m.Type = *update.Type
	}

	if update.Status != nil {
		m.Status = *update.Status
	}

	if update.Title != nil {
		m.Title = *update.Title
	}

	if update.StartTime != nil {
		m.StartTime = update.StartTime
	}

	if update.EndTime != nil {
		m.EndTime = update.EndTime
	}

	if update.Location != nil {
		m.Location = *update.Location
	}

	if update.Attendees != nil {
		m.Attendees = update.Attendees
	}

	if update.Agenda != nil {
		m.Agenda = *update.Agenda
	}

	if update.MeetingLink != nil {
		m.MeetingLink = *update.MeetingLink
	}

	return nil
}

// Duration returns the meeting length, or zero when either bound is unset.
func (m *MeetingData) Duration() time.Duration {
	if m.StartTime == nil || m.EndTime == nil {
		return 0
	}

	return m.EndTime.Sub(*m.StartTime)
}

// AttendeeEmails returns the attendee emails in list order.
func (m *MeetingData) AttendeeEmails() []string {
	emails := make([]string, 0, len(m.Attendees))
	for _, attendee := range m.Attendees {
		emails = append(emails, attendee.Email)
	}

	return emails
}
