// Package events defines event types for meeting-workflow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/parley-hq/parley/pkg/models"
)

type EventType string

// Topic carries every workflow lifecycle event, keyed by conversation ID.
const Topic = "parley.workflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowStartedEvent   EventType = "workflow.started"
	StepAdvancedEvent      EventType = "workflow.step.advanced"
	MeetingCreatedEvent    EventType = "meeting.created"
	AgendaEmailedEvent     EventType = "agenda.emailed"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"
)

type BaseEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	MeetingID      string    `json:"meeting_id,omitempty"`
}

type WorkflowStarted struct {
	BaseEvent

	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func (e WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type StepAdvanced struct {
	BaseEvent

	PreviousStep models.WorkflowStep `json:"previous_step"`
	CurrentStep  models.WorkflowStep `json:"current_step"`
	Progress     int                 `json:"progress"`
}

func (e StepAdvanced) GetType() EventType {
	return StepAdvancedEvent
}

type MeetingCreated struct {
	BaseEvent

	Title       string `json:"title"`
	MeetingLink string `json:"meeting_link,omitempty"`
	Attendees   int    `json:"attendees"`
}

func (e MeetingCreated) GetType() EventType {
	return MeetingCreatedEvent
}

type AgendaEmailed struct {
	BaseEvent

	JobID          string `json:"job_id"`
	TotalAttendees int    `json:"total_attendees"`
}

func (e AgendaEmailed) GetType() EventType {
	return AgendaEmailedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}
