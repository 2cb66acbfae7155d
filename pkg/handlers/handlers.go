// Package handlers applies UI block interactions to the workflow state
// machine. One handler exists per (block type, action) pair; every handler
// validates its payload before touching state and applies at most one state
// mutation.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/parley-hq/parley/pkg/blocks"
	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/workflow"
)

// Action is the interaction verb sent by the UI.
type Action string

const (
	ActionTypeSelect       Action = "type_select"
	ActionAttendeesUpdate  Action = "attendees_update"
	ActionContinue         Action = "continue"
	ActionApprove          Action = "approve"
	ActionEdit             Action = "edit"
	ActionAgendaUpdate     Action = "agenda_update"
	ActionAgendaApprove    Action = "agenda_approve"
	ActionAgendaRegenerate Action = "agenda_regenerate"
)

// Effect tells the caller which external collaborator must run after the
// state mutation. External calls never happen inside a handler.
type Effect string

const (
	EffectNone           Effect = ""
	EffectGenerateAgenda Effect = "generate_agenda"
	EffectCreateMeeting  Effect = "create_meeting"
)

// MinAgendaLength is the minimum agenda size accepted at approval.
const MinAgendaLength = 50

var (
	// ErrMalformedPayload is returned before any state mutation when the
	// interaction payload fails shape validation.
	ErrMalformedPayload = errors.New("malformed interaction payload")

	// ErrUnknownAction is returned for an action outside the contract.
	ErrUnknownAction = errors.New("unknown interaction action")

	// ErrBlockMismatch is returned when the action does not belong to the
	// block type it was sent for.
	ErrBlockMismatch = errors.New("action does not match block type")
)

// Request is the UI block interaction consumed from the chat frontend.
type Request struct {
	BlockType      blocks.Type     `json:"block_type"      validate:"required"`
	Action         Action          `json:"action"          validate:"required"`
	Data           json.RawMessage `json:"data"`
	ConversationID string          `json:"conversation_id" validate:"required"`
}

// Result is the outcome of applying one interaction.
type Result struct {
	Message string
	Block   blocks.Block
	Check   workflow.TransitionCheck
	Effect  Effect
}

// TypeSelectPayload carries the physical/online choice. Physical meetings
// must provide the location in the same call.
type TypeSelectPayload struct {
	MeetingType models.MeetingType `json:"meeting_type" validate:"required,oneof=physical online"`
	Location    string             `json:"location"`
}

// AttendeesPayload replaces the whole attendee list atomically.
type AttendeesPayload struct {
	Attendees []models.Attendee `json:"attendees" validate:"required,dive"`
}

// ContinuePayload optionally merges collected fields before advancing.
type ContinuePayload struct {
	Update *models.MeetingUpdate `json:"update,omitempty"`
}

// EditPayload requests a backward correction to an earlier step.
type EditPayload struct {
	TargetStep models.WorkflowStep `json:"target_step" validate:"required"`
}

// AgendaPayload carries the agenda text or HTML.
type AgendaPayload struct {
	Agenda string `json:"agenda"`
}

// actionBlocks maps each action to the block types it is valid for.
var actionBlocks = map[Action][]blocks.Type{
	ActionTypeSelect:       {blocks.TypeMeetingTypeSelection},
	ActionAttendeesUpdate:  {blocks.TypeAttendeeManagement},
	ActionContinue:         {blocks.TypeAttendeeManagement, blocks.TypeMeetingDetails, blocks.TypeTimeCollection, blocks.TypeAvailabilityCheck, blocks.TypeConflictResolution, blocks.TypeValidationSummary, blocks.TypeCalendarAccess},
	ActionApprove:          {blocks.TypeMeetingApproval},
	ActionEdit:             {blocks.TypeMeetingApproval, blocks.TypeValidationSummary, blocks.TypeCompletionSummary},
	ActionAgendaUpdate:     {blocks.TypeAgendaEditor},
	ActionAgendaApprove:    {blocks.TypeAgendaEditor},
	ActionAgendaRegenerate: {blocks.TypeAgendaEditor},
}

// Dispatcher routes interactions to their handler.
type Dispatcher struct {
	validate *validator.Validate
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handle applies the interaction to the state and returns the next block.
// Malformed payloads fail before any mutation; the state is never left
// partially updated.
func (d *Dispatcher) Handle(state *models.WorkflowState, req Request) (*Result, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}

	allowed, ok := actionBlocks[req.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}

	if !containsType(allowed, req.BlockType) {
		return nil, fmt.Errorf("%w: %s on %s", ErrBlockMismatch, req.Action, req.BlockType)
	}

	switch req.Action {
	case ActionTypeSelect:
		return d.handleTypeSelect(state, req.Data)
	case ActionAttendeesUpdate:
		return d.handleAttendeesUpdate(state, req.Data)
	case ActionContinue:
		return d.handleContinue(state, req.Data)
	case ActionApprove:
		return d.handleApprove(state)
	case ActionEdit:
		return d.handleEdit(state, req.Data)
	case ActionAgendaUpdate:
		return d.handleAgendaUpdate(state, req.Data)
	case ActionAgendaApprove:
		return d.handleAgendaApprove(state, req.Data)
	case ActionAgendaRegenerate:
		return d.handleAgendaRegenerate(state)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}
}

// handleTypeSelect locks in the meeting type. Online meetings advance
// straight to attendee collection; physical meetings need a location in the
// same call or the block is re-emitted without advancing.
func (d *Dispatcher) handleTypeSelect(state *models.WorkflowState, data json.RawMessage) (*Result, error) {
	payload, err := decode[TypeSelectPayload](d, data)
	if err != nil {
		return nil, err
	}

	if payload.MeetingType == models.MeetingTypePhysical &&
		len(strings.TrimSpace(payload.Location)) < 3 {
		return &Result{
			Message: "Location is required for physical meetings",
			Block:   blocks.Generate(state),
			Check: workflow.TransitionCheck{
				CanTransition: false,
				Errors: []models.ValidationResult{{
					Field:    "location",
					IsValid:  false,
					Message:  "Location is required for physical meetings",
					Severity: models.SeverityError,
				}},
				RequiredActions: []string{"Provide a location for the physical meeting"},
			},
		}, nil
	}

	update := models.MeetingUpdate{Type: &payload.MeetingType}
	if payload.Location != "" {
		update.Location = &payload.Location
	}

	if err := workflow.ApplyUpdate(state, update); err != nil {
		return nil, err
	}

	check, err := workflow.Advance(state, models.StepAttendeeCollection)
	if err != nil {
		return &Result{Block: blocks.Generate(state), Check: check}, err
	}

	return &Result{
		Message: fmt.Sprintf("Meeting type set to %s. Who should attend?", payload.MeetingType),
		Block:   blocks.Generate(state),
		Check:   check,
	}, nil
}

// handleAttendeesUpdate replaces the attendee list and re-validates without
// advancing; the user continues separately.
func (d *Dispatcher) handleAttendeesUpdate(state *models.WorkflowState, data json.RawMessage) (*Result, error) {
	payload, err := decode[AttendeesPayload](d, data)
	if err != nil {
		return nil, err
	}

	if err := workflow.ApplyUpdate(state, models.MeetingUpdate{Attendees: payload.Attendees}); err != nil {
		return nil, err
	}

	return &Result{
		Message: fmt.Sprintf("Attendee list updated (%d attendees)", len(payload.Attendees)),
		Block:   blocks.Generate(state),
		Check:   workflow.TransitionCheck{CanTransition: true},
	}, nil
}

// handleContinue merges any collected fields and advances to the next step.
// The advancement is refused, with the same block re-emitted, when the next
// step's entry requirements fail (e.g. an online meeting with no attendees).
func (d *Dispatcher) handleContinue(state *models.WorkflowState, data json.RawMessage) (*Result, error) {
	payload := ContinuePayload{}

	if len(data) > 0 {
		decoded, err := decode[ContinuePayload](d, data)
		if err != nil {
			return nil, err
		}

		payload = *decoded
	}

	if payload.Update != nil {
		if err := workflow.ApplyUpdate(state, *payload.Update); err != nil {
			return nil, err
		}
	}

	check, err := workflow.Advance(state, "")
	if err != nil {
		return &Result{
			Message: "A few things need fixing before we can continue",
			Block:   blocks.Generate(state),
			Check:   check,
		}, err
	}

	result := &Result{
		Message: "Moving on",
		Block:   blocks.Generate(state),
		Check:   check,
	}

	if state.CurrentStep == models.StepAgendaGeneration {
		result.Effect = EffectGenerateAgenda
	}

	return result, nil
}

// handleApprove confirms the full meeting summary, marks the meeting
// approved, and hands off to calendar-event creation.
func (d *Dispatcher) handleApprove(state *models.WorkflowState) (*Result, error) {
	if check := workflow.CanTransition(state, models.StepCreation); !check.CanTransition {
		return &Result{
			Message: "The meeting is not ready to be created yet",
			Block:   blocks.Generate(state),
			Check:   check,
		}, workflow.ErrTransitionBlocked
	}

	status := models.MeetingStatusApproved
	if err := workflow.ApplyUpdate(state, models.MeetingUpdate{Status: &status}); err != nil {
		return nil, err
	}

	check, err := workflow.Advance(state, models.StepCreation)
	if err != nil {
		return &Result{Block: blocks.Generate(state), Check: check}, err
	}

	return &Result{
		Message: "Meeting approved. Creating the calendar event.",
		Block:   blocks.Generate(state),
		Check:   check,
		Effect:  EffectCreateMeeting,
	}, nil
}

// handleEdit is a backward correction; it is always permitted.
func (d *Dispatcher) handleEdit(state *models.WorkflowState, data json.RawMessage) (*Result, error) {
	payload, err := decode[EditPayload](d, data)
	if err != nil {
		return nil, err
	}

	if !payload.TargetStep.Valid() {
		return nil, fmt.Errorf("%w: unknown step %q", ErrMalformedPayload, payload.TargetStep)
	}

	if !payload.TargetStep.Before(state.CurrentStep) {
		return nil, fmt.Errorf("%w: edit must target an earlier step", ErrMalformedPayload)
	}

	check, err := workflow.Advance(state, payload.TargetStep)
	if err != nil {
		return nil, err
	}

	return &Result{
		Message: "Let's revisit that",
		Block:   blocks.Generate(state),
		Check:   check,
	}, nil
}

// handleAgendaUpdate replaces the agenda text. The only validation is a
// non-emptiness warning; the user stays on the agenda editor.
func (d *Dispatcher) handleAgendaUpdate(state *models.WorkflowState, data json.RawMessage) (*Result, error) {
	payload, err := decode[AgendaPayload](d, data)
	if err != nil {
		return nil, err
	}

	if err := workflow.ApplyUpdate(state, models.MeetingUpdate{Agenda: &payload.Agenda}); err != nil {
		return nil, err
	}

	check := workflow.TransitionCheck{CanTransition: true}
	if strings.TrimSpace(payload.Agenda) == "" {
		check.Errors = append(check.Errors, models.ValidationResult{
			Field:    "agenda",
			IsValid:  false,
			Message:  "The agenda is empty",
			Severity: models.SeverityWarning,
		})
	}

	return &Result{
		Message: "Agenda updated",
		Block:   blocks.Generate(state),
		Check:   check,
	}, nil
}

// handleAgendaApprove accepts the agenda and advances to meeting approval,
// but only when the agenda validation passes; otherwise the editor block is
// re-emitted with the validation errors attached.
func (d *Dispatcher) handleAgendaApprove(state *models.WorkflowState, data json.RawMessage) (*Result, error) {
	payload, err := decode[AgendaPayload](d, data)
	if err != nil {
		return nil, err
	}

	agenda := payload.Agenda
	if agenda == "" {
		agenda = state.MeetingData.Agenda
	}

	results := ValidateAgenda(agenda)

	blocking, _ := models.SplitResults(results)
	if len(blocking) > 0 {
		editor := blocks.Generate(state)
		if typed, ok := editor.(blocks.AgendaEditor); ok {
			typed.Validation = blocking
			editor = typed
		}

		return &Result{
			Message: "The agenda needs more detail before it can be approved",
			Block:   editor,
			Check:   workflow.TransitionCheck{CanTransition: false, Errors: blocking},
		}, nil
	}

	if check := workflow.CanTransition(state, models.StepApproval); !check.CanTransition {
		return &Result{
			Message: "A few things need fixing before the agenda can be approved",
			Block:   blocks.Generate(state),
			Check:   check,
		}, workflow.ErrTransitionBlocked
	}

	status := models.MeetingStatusPendingApproval
	if err := workflow.ApplyUpdate(state, models.MeetingUpdate{Agenda: &agenda, Status: &status}); err != nil {
		return nil, err
	}

	check, err := workflow.Advance(state, models.StepApproval)
	if err != nil {
		return &Result{Block: blocks.Generate(state), Check: check}, err
	}

	return &Result{
		Message: "Agenda approved. Review the full meeting summary.",
		Block:   blocks.Generate(state),
		Check:   check,
	}, nil
}

// handleAgendaRegenerate clears the agenda and re-enters agenda generation;
// the actual generation runs outside the state machine's critical section.
func (d *Dispatcher) handleAgendaRegenerate(state *models.WorkflowState) (*Result, error) {
	empty := ""
	if err := workflow.ApplyUpdate(state, models.MeetingUpdate{Agenda: &empty}); err != nil {
		return nil, err
	}

	state.AgendaGeneration++

	if state.CurrentStep != models.StepAgendaGeneration {
		if _, err := workflow.Advance(state, models.StepAgendaGeneration); err != nil {
			return nil, err
		}
	}

	return &Result{
		Message: "Drafting a new agenda",
		Block:   blocks.Generate(state),
		Check:   workflow.TransitionCheck{CanTransition: true},
		Effect:  EffectGenerateAgenda,
	}, nil
}

var timeMarkerPattern = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}|\d+\s*(min|minutes|h|hour))`)

// ValidateAgenda checks the agenda content for approval: a hard minimum
// length, plus structural hints surfaced as warnings.
func ValidateAgenda(agenda string) []models.ValidationResult {
	var results []models.ValidationResult

	trimmed := strings.TrimSpace(agenda)

	if len(trimmed) < MinAgendaLength {
		results = append(results, models.ValidationResult{
			Field:    "agenda",
			IsValid:  false,
			Message:  fmt.Sprintf("The agenda must be at least %d characters long", MinAgendaLength),
			Severity: models.SeverityError,
		})

		return results
	}

	if !timeMarkerPattern.MatchString(trimmed) {
		results = append(results, models.ValidationResult{
			Field:    "agenda",
			IsValid:  false,
			Message:  "Consider adding time allocations to the agenda items",
			Severity: models.SeverityWarning,
		})
	}

	return results
}

func decode[T any](d *Dispatcher, data json.RawMessage) (*T, error) {
	var payload T

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}

	if err := d.validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}

	return &payload, nil
}

func containsType(list []blocks.Type, t blocks.Type) bool {
	for _, candidate := range list {
		if candidate == t {
			return true
		}
	}

	return false
}
