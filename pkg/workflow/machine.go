// Package workflow implements the conversational meeting-creation state
// machine: a fixed, ordered step sequence with validation-gated forward
// transitions and always-permitted backward corrections.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/validation"
)

var (
	// ErrUnknownStep is returned for a target step outside the enum.
	ErrUnknownStep = errors.New("unknown workflow step")

	// ErrTransitionBlocked is returned when a forward transition fails its
	// target step's entry requirements.
	ErrTransitionBlocked = errors.New("transition blocked by validation")

	// ErrWorkflowComplete is returned when advancing a finished workflow.
	ErrWorkflowComplete = errors.New("workflow already complete")
)

// TransitionCheck is the outcome of a transition feasibility check.
type TransitionCheck struct {
	CanTransition   bool                      `json:"can_transition"`
	RequiredActions []string                  `json:"required_actions"`
	Errors          []models.ValidationResult `json:"errors"`
}

// NewState initializes a workflow state for a conversation. With no initial
// data the workflow starts at intent detection; otherwise it starts at the
// furthest step whose entry requirements the supplied data already
// satisfies.
func NewState(conversationID string, initial *models.MeetingUpdate) (*models.WorkflowState, error) {
	now := time.Now().UTC()

	state := &models.WorkflowState{
		ConversationID: conversationID,
		CurrentStep:    models.StepIntentDetection,
		MeetingData: models.MeetingData{
			ID:        uuid.New().String(),
			Attendees: []models.Attendee{},
			Status:    models.MeetingStatusDraft,
		},
		ValidationResults: []models.ValidationResult{},
		PendingActions:    []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if initial != nil {
		if err := state.MeetingData.Apply(*initial); err != nil {
			return nil, fmt.Errorf("initial meeting data rejected: %w", err)
		}

		state.CurrentStep = firstApplicableStep(state.MeetingData)
	}

	refresh(state)

	return state, nil
}

// firstApplicableStep walks forward from intent detection and returns the
// furthest data-collection step whose entry requirements are already met.
// It never skips past validation; approval and creation always require an
// explicit pass through the flow.
func firstApplicableStep(data models.MeetingData) models.WorkflowStep {
	current := models.StepIntentDetection

	for _, candidate := range models.StepOrder {
		if candidate.Index() > models.StepValidation.Index() {
			break
		}

		results := validation.Evaluate(data, candidate)
		if hasBlocking(results) {
			break
		}

		current = candidate
	}

	return current
}

// CanTransition reports whether the workflow may move from its current step
// to the target. Backward moves are always permitted; forward moves run the
// validation rule set scoped to the target step.
func CanTransition(state *models.WorkflowState, target models.WorkflowStep) TransitionCheck {
	if !target.Valid() {
		return TransitionCheck{
			CanTransition: false,
			Errors: []models.ValidationResult{{
				Field:    "step",
				IsValid:  false,
				Message:  fmt.Sprintf("Unknown workflow step: %s", target),
				Severity: models.SeverityError,
			}},
		}
	}

	if target.Index() <= state.CurrentStep.Index() {
		return TransitionCheck{CanTransition: true}
	}

	results := validation.Evaluate(state.MeetingData, target)
	blocking, _ := models.SplitResults(results)

	return TransitionCheck{
		CanTransition:   len(blocking) == 0,
		RequiredActions: requiredActions(blocking),
		Errors:          blocking,
	}
}

// Advance moves the workflow to the target step, or to the next step in the
// sequence when target is empty. The transition is rejected, leaving the
// state untouched, when the target step's entry requirements fail.
func Advance(state *models.WorkflowState, target models.WorkflowStep) (TransitionCheck, error) {
	if state.IsComplete {
		return TransitionCheck{}, ErrWorkflowComplete
	}

	if target == "" {
		next, ok := state.CurrentStep.Next()
		if !ok {
			return TransitionCheck{}, ErrWorkflowComplete
		}

		target = next
	}

	if !target.Valid() {
		return TransitionCheck{}, fmt.Errorf("%w: %s", ErrUnknownStep, target)
	}

	check := CanTransition(state, target)
	if !check.CanTransition {
		return check, ErrTransitionBlocked
	}

	state.CurrentStep = target
	refresh(state)

	return check, nil
}

// ApplyUpdate merges partial meeting data into the state and re-runs
// validation for the current step. The state is left untouched when the
// merge is rejected (locked type, status regression).
func ApplyUpdate(state *models.WorkflowState, update models.MeetingUpdate) error {
	if err := state.MeetingData.Apply(update); err != nil {
		return err
	}

	refresh(state)

	return nil
}

// refresh recomputes the derived fields of the state: progress, validation
// results for the current step, collection flags, and completion.
func refresh(state *models.WorkflowState) {
	results := validation.Evaluate(state.MeetingData, state.CurrentStep)
	blocking, warnings := models.SplitResults(results)

	state.ValidationResults = results
	state.Errors = blocking
	state.Warnings = warnings
	state.PendingActions = requiredActions(blocking)
	state.Progress = state.CurrentStep.Progress()
	state.IsComplete = state.CurrentStep == models.StepCompleted

	data := state.MeetingData
	state.TimeCollectionComplete = data.StartTime != nil && data.EndTime != nil &&
		data.StartTime.Before(*data.EndTime)
	state.AttendeeCollectionComplete = data.Type == models.MeetingTypePhysical ||
		len(data.Attendees) > 0

	state.UpdatedAt = time.Now().UTC()
}

func hasBlocking(results []models.ValidationResult) bool {
	for _, result := range results {
		if result.Blocking() {
			return true
		}
	}

	return false
}

// requiredActions turns blocking validation results into the human-readable
// fixes the user must perform before the transition can happen.
func requiredActions(blocking []models.ValidationResult) []string {
	actions := make([]string, 0, len(blocking))
	seen := make(map[string]bool, len(blocking))

	for _, result := range blocking {
		action := actionForField(result.Field)
		if action == "" {
			action = result.Message
		}

		if seen[action] {
			continue
		}

		seen[action] = true
		actions = append(actions, action)
	}

	return actions
}

func actionForField(field string) string {
	switch field {
	case "type":
		return "Select meeting type"
	case "attendees":
		return "Add attendees for online meeting"
	case "time":
		return "Set meeting start and end time"
	case "title":
		return "Add a meeting title"
	case "location":
		return "Provide a location for the physical meeting"
	default:
		return ""
	}
}
