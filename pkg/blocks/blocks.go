// Package blocks defines the declarative UI directives the workflow emits
// for the chat frontend. Each block variant carries only the data needed to
// render and interact with one step.
package blocks

import (
	"time"

	"github.com/parley-hq/parley/pkg/models"
)

// Type discriminates the block union on the wire.
type Type string

const (
	TypeIntentPrompt         Type = "intent_prompt"
	TypeCalendarAccess       Type = "calendar_access"
	TypeMeetingTypeSelection Type = "meeting_type_selection"
	TypeTimeCollection       Type = "time_collection"
	TypeAvailabilityCheck    Type = "availability_check"
	TypeConflictResolution   Type = "conflict_resolution"
	TypeAttendeeManagement   Type = "attendee_management"
	TypeMeetingDetails       Type = "meeting_details"
	TypeValidationSummary    Type = "validation_summary"
	TypeAgendaEditor         Type = "agenda_editor"
	TypeMeetingApproval      Type = "meeting_approval"
	TypeCreationProgress     Type = "creation_progress"
	TypeCompletionSummary    Type = "completion_summary"
)

// Block is one UI directive. Exactly one block is active per turn, and its
// content is fully derivable from the workflow state.
type Block interface {
	BlockType() Type
}

// IntentPrompt asks the user what they want to schedule.
type IntentPrompt struct {
	Type     Type   `json:"type"`
	Question string `json:"question"`
}

func (b IntentPrompt) BlockType() Type { return TypeIntentPrompt }

// CalendarAccess tells the user calendar access is being verified.
type CalendarAccess struct {
	Type      Type   `json:"type"`
	MeetingID string `json:"meeting_id"`
	Message   string `json:"message"`
}

func (b CalendarAccess) BlockType() Type { return TypeCalendarAccess }

// MeetingTypeSelection asks for the physical/online choice. CurrentType and
// CurrentLocation are omitted until the user has picked them, so the UI
// renders prompts instead of values.
type MeetingTypeSelection struct {
	Type            Type               `json:"type"`
	Question        string             `json:"question"`
	MeetingID       string             `json:"meeting_id"`
	CurrentType     models.MeetingType `json:"current_type,omitempty"`
	CurrentLocation string             `json:"current_location,omitempty"`
}

func (b MeetingTypeSelection) BlockType() Type { return TypeMeetingTypeSelection }

// TimeCollection collects the meeting time window.
type TimeCollection struct {
	Type      Type       `json:"type"`
	MeetingID string     `json:"meeting_id"`
	Question  string     `json:"question"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

func (b TimeCollection) BlockType() Type { return TypeTimeCollection }

// AvailabilityCheck shows the window being checked against attendee calendars.
type AvailabilityCheck struct {
	Type      Type       `json:"type"`
	MeetingID string     `json:"meeting_id"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Attendees []string   `json:"attendees"`
}

func (b AvailabilityCheck) BlockType() Type { return TypeAvailabilityCheck }

// ConflictResolution asks the user to pick an alternative when the window
// collides with existing events.
type ConflictResolution struct {
	Type      Type   `json:"type"`
	MeetingID string `json:"meeting_id"`
	Message   string `json:"message"`
}

func (b ConflictResolution) BlockType() Type { return TypeConflictResolution }

// AttendeeManagement renders the attendee list editor. IsRequired is true
// for online meetings, where the list must be non-empty before continuing.
type AttendeeManagement struct {
	Type             Type                      `json:"type"`
	MeetingID        string                    `json:"meeting_id"`
	Attendees        []models.Attendee         `json:"attendees"`
	MeetingType      models.MeetingType        `json:"meeting_type"`
	IsRequired       bool                      `json:"is_required"`
	ValidationErrors []models.ValidationResult `json:"validation_errors,omitempty"`
}

func (b AttendeeManagement) BlockType() Type { return TypeAttendeeManagement }

// MeetingDetails collects the title and, for physical meetings, the location.
type MeetingDetails struct {
	Type      Type   `json:"type"`
	MeetingID string `json:"meeting_id"`
	Question  string `json:"question"`
	Title     string `json:"title,omitempty"`
	Location  string `json:"location,omitempty"`
}

func (b MeetingDetails) BlockType() Type { return TypeMeetingDetails }

// ValidationSummary shows the full rule outcome before agenda generation.
type ValidationSummary struct {
	Type       Type                      `json:"type"`
	MeetingID  string                    `json:"meeting_id"`
	Results    []models.ValidationResult `json:"results"`
	CanProceed bool                      `json:"can_proceed"`
}

func (b ValidationSummary) BlockType() Type { return TypeValidationSummary }

// AgendaEditor renders the agenda for editing. IsApprovalMode distinguishes
// the review before business-rule approval from a later re-review.
type AgendaEditor struct {
	Type            Type                      `json:"type"`
	MeetingID       string                    `json:"meeting_id"`
	InitialAgenda   string                    `json:"initial_agenda"`
	MeetingTitle    string                    `json:"meeting_title"`
	DurationMinutes int                       `json:"duration_minutes"`
	IsApprovalMode  bool                      `json:"is_approval_mode,omitempty"`
	Validation      []models.ValidationResult `json:"validation,omitempty"`
}

func (b AgendaEditor) BlockType() Type { return TypeAgendaEditor }

// MeetingApproval aggregates the full meeting summary with the latest
// validation results so the UI can show per-field edit affordances.
type MeetingApproval struct {
	Type              Type                      `json:"type"`
	MeetingID         string                    `json:"meeting_id"`
	Meeting           models.MeetingData        `json:"meeting"`
	ValidationResults []models.ValidationResult `json:"validation_results"`
}

func (b MeetingApproval) BlockType() Type { return TypeMeetingApproval }

// CreationProgress reports the calendar event being created.
type CreationProgress struct {
	Type      Type   `json:"type"`
	MeetingID string `json:"meeting_id"`
	Message   string `json:"message"`
}

func (b CreationProgress) BlockType() Type { return TypeCreationProgress }

// CompletionSummary closes the conversation with the created meeting.
type CompletionSummary struct {
	Type        Type   `json:"type"`
	MeetingID   string `json:"meeting_id"`
	MeetingLink string `json:"meeting_link,omitempty"`
	Message     string `json:"message"`
}

func (b CompletionSummary) BlockType() Type { return TypeCompletionSummary }
