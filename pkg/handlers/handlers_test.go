package handlers_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-hq/parley/pkg/blocks"
	"github.com/parley-hq/parley/pkg/handlers"
	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/workflow"
)

func ptr[T any](v T) *T {
	return &v
}

func stateAt(t *testing.T, step models.WorkflowStep, initial *models.MeetingUpdate) *models.WorkflowState {
	t.Helper()

	state, err := workflow.NewState("conv-1", initial)
	require.NoError(t, err)

	state.CurrentStep = step

	return state
}

func completeUpdate() *models.MeetingUpdate {
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(time.Hour)

	return &models.MeetingUpdate{
		Title:     ptr("Quarterly Review"),
		Type:      ptr(models.MeetingTypeOnline),
		StartTime: &start,
		EndTime:   &end,
		Attendees: []models.Attendee{{Email: "alice@example.com"}},
	}
}

func request(t *testing.T, blockType blocks.Type, action handlers.Action, payload any) handlers.Request {
	t.Helper()

	var data json.RawMessage

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		data = raw
	}

	return handlers.Request{
		BlockType:      blockType,
		Action:         action,
		Data:           data,
		ConversationID: "conv-1",
	}
}

func TestHandle_TypeSelectOnlineAdvancesToAttendees(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepMeetingTypeSelection, nil)

	result, err := d.Handle(state, request(t, blocks.TypeMeetingTypeSelection, handlers.ActionTypeSelect,
		handlers.TypeSelectPayload{MeetingType: models.MeetingTypeOnline}))
	require.NoError(t, err)

	assert.Equal(t, models.StepAttendeeCollection, state.CurrentStep)
	assert.Equal(t, models.MeetingTypeOnline, state.MeetingData.Type)
	assert.Equal(t, blocks.TypeAttendeeManagement, result.Block.BlockType())
}

func TestHandle_TypeSelectPhysicalNeedsLocation(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepMeetingTypeSelection, nil)

	result, err := d.Handle(state, request(t, blocks.TypeMeetingTypeSelection, handlers.ActionTypeSelect,
		handlers.TypeSelectPayload{MeetingType: models.MeetingTypePhysical}))
	require.NoError(t, err)

	// Re-prompted on the same block; the type was not locked in.
	assert.Equal(t, models.StepMeetingTypeSelection, state.CurrentStep)
	assert.Empty(t, state.MeetingData.Type)
	assert.False(t, result.Check.CanTransition)
	assert.Equal(t, "Location is required for physical meetings", result.Message)

	// With a location the selection goes through.
	result, err = d.Handle(state, request(t, blocks.TypeMeetingTypeSelection, handlers.ActionTypeSelect,
		handlers.TypeSelectPayload{MeetingType: models.MeetingTypePhysical, Location: "Room 12"}))
	require.NoError(t, err)

	assert.Equal(t, models.MeetingTypePhysical, state.MeetingData.Type)
	assert.Equal(t, "Room 12", state.MeetingData.Location)
	assert.True(t, result.Check.CanTransition)
}

func TestHandle_TypeSelectRejectsUnknownType(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepMeetingTypeSelection, nil)

	_, err := d.Handle(state, request(t, blocks.TypeMeetingTypeSelection, handlers.ActionTypeSelect,
		map[string]string{"meeting_type": "hybrid"}))
	require.ErrorIs(t, err, handlers.ErrMalformedPayload)
	assert.Empty(t, state.MeetingData.Type)
}

func TestHandle_TypeLockedAfterSelection(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepMeetingTypeSelection, &models.MeetingUpdate{
		Type: ptr(models.MeetingTypeOnline),
	})
	state.CurrentStep = models.StepMeetingTypeSelection

	_, err := d.Handle(state, request(t, blocks.TypeMeetingTypeSelection, handlers.ActionTypeSelect,
		handlers.TypeSelectPayload{MeetingType: models.MeetingTypePhysical, Location: "Room 12"}))
	require.ErrorIs(t, err, models.ErrMeetingTypeLocked)
	assert.Equal(t, models.MeetingTypeOnline, state.MeetingData.Type)
}

func TestHandle_AttendeesUpdateReplacesListWithoutAdvancing(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepAttendeeCollection, &models.MeetingUpdate{
		Type:      ptr(models.MeetingTypeOnline),
		Attendees: []models.Attendee{{Email: "old@example.com"}},
	})
	state.CurrentStep = models.StepAttendeeCollection

	result, err := d.Handle(state, request(t, blocks.TypeAttendeeManagement, handlers.ActionAttendeesUpdate,
		handlers.AttendeesPayload{Attendees: []models.Attendee{
			{Email: "alice@example.com"},
			{Email: "bob@example.com"},
		}}))
	require.NoError(t, err)

	assert.Equal(t, models.StepAttendeeCollection, state.CurrentStep)
	require.Len(t, state.MeetingData.Attendees, 2)
	assert.Equal(t, "alice@example.com", state.MeetingData.Attendees[0].Email)
	assert.Equal(t, blocks.TypeAttendeeManagement, result.Block.BlockType())
}

func TestHandle_ContinueBlockedForOnlineWithoutAttendees(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepAttendeeCollection, &models.MeetingUpdate{
		Type: ptr(models.MeetingTypeOnline),
	})
	state.CurrentStep = models.StepAttendeeCollection

	result, err := d.Handle(state, request(t, blocks.TypeAttendeeManagement, handlers.ActionContinue, nil))
	require.ErrorIs(t, err, workflow.ErrTransitionBlocked)

	assert.Equal(t, models.StepAttendeeCollection, state.CurrentStep)
	assert.False(t, result.Check.CanTransition)
	assert.Contains(t, result.Check.RequiredActions, "Add attendees for online meeting")
}

func TestHandle_ContinueMergesUpdateThenAdvances(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepAttendeeCollection, &models.MeetingUpdate{
		Type: ptr(models.MeetingTypeOnline),
	})
	state.CurrentStep = models.StepAttendeeCollection

	result, err := d.Handle(state, request(t, blocks.TypeAttendeeManagement, handlers.ActionContinue,
		handlers.ContinuePayload{Update: &models.MeetingUpdate{
			Attendees: []models.Attendee{{Email: "alice@example.com"}},
		}}))
	require.NoError(t, err)

	assert.Equal(t, models.StepMeetingDetailsCollection, state.CurrentStep)
	assert.Equal(t, handlers.EffectNone, result.Effect)
}

func TestHandle_ContinueIntoAgendaGenerationRequestsEffect(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepValidation, completeUpdate())
	require.Equal(t, models.StepValidation, state.CurrentStep)

	result, err := d.Handle(state, request(t, blocks.TypeValidationSummary, handlers.ActionContinue, nil))
	require.NoError(t, err)

	assert.Equal(t, models.StepAgendaGeneration, state.CurrentStep)
	assert.Equal(t, handlers.EffectGenerateAgenda, result.Effect)
}

func TestHandle_AgendaApproveRejectsShortAgenda(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepAgendaApproval, completeUpdate())
	state.CurrentStep = models.StepAgendaApproval

	result, err := d.Handle(state, request(t, blocks.TypeAgendaEditor, handlers.ActionAgendaApprove,
		handlers.AgendaPayload{Agenda: "too short"}))
	require.NoError(t, err)

	assert.Equal(t, models.StepAgendaApproval, state.CurrentStep)
	assert.False(t, result.Check.CanTransition)

	editor, ok := result.Block.(blocks.AgendaEditor)
	require.True(t, ok)
	require.NotEmpty(t, editor.Validation)
	assert.Equal(t, "agenda", editor.Validation[0].Field)
}

func TestHandle_AgendaApproveAdvancesToApproval(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepAgendaApproval, completeUpdate())
	state.CurrentStep = models.StepAgendaApproval

	agenda := "1. Review quarterly numbers (30 min)\n2. Discuss next steps (30 min)"

	result, err := d.Handle(state, request(t, blocks.TypeAgendaEditor, handlers.ActionAgendaApprove,
		handlers.AgendaPayload{Agenda: agenda}))
	require.NoError(t, err)

	assert.Equal(t, models.StepApproval, state.CurrentStep)
	assert.Equal(t, agenda, state.MeetingData.Agenda)
	assert.Equal(t, models.MeetingStatusPendingApproval, state.MeetingData.Status)
	assert.Equal(t, blocks.TypeMeetingApproval, result.Block.BlockType())
}

func TestHandle_AgendaRegenerateBumpsGeneration(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepAgendaApproval, completeUpdate())
	state.CurrentStep = models.StepAgendaApproval
	state.MeetingData.Agenda = "1. Old agenda content with time markers (30 min)"

	before := state.AgendaGeneration

	result, err := d.Handle(state, request(t, blocks.TypeAgendaEditor, handlers.ActionAgendaRegenerate, nil))
	require.NoError(t, err)

	assert.Equal(t, before+1, state.AgendaGeneration)
	assert.Equal(t, models.StepAgendaGeneration, state.CurrentStep)
	assert.Empty(t, state.MeetingData.Agenda)
	assert.Equal(t, handlers.EffectGenerateAgenda, result.Effect)
}

func TestHandle_ApproveWithCompleteData(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepApproval, completeUpdate())
	state.CurrentStep = models.StepApproval

	result, err := d.Handle(state, request(t, blocks.TypeMeetingApproval, handlers.ActionApprove, nil))
	require.NoError(t, err)

	assert.Equal(t, models.StepCreation, state.CurrentStep)
	assert.Equal(t, models.MeetingStatusApproved, state.MeetingData.Status)
	assert.Equal(t, handlers.EffectCreateMeeting, result.Effect)
}

func TestHandle_ApproveWithIncompleteDataRejected(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepApproval, nil)
	state.CurrentStep = models.StepApproval

	result, err := d.Handle(state, request(t, blocks.TypeMeetingApproval, handlers.ActionApprove, nil))
	require.ErrorIs(t, err, workflow.ErrTransitionBlocked)

	// Status untouched and every unmet requirement listed.
	assert.Equal(t, models.MeetingStatusDraft, state.MeetingData.Status)
	assert.Equal(t, models.StepApproval, state.CurrentStep)
	assert.ElementsMatch(t, []string{
		"Select meeting type",
		"Set meeting start and end time",
		"Add a meeting title",
	}, result.Check.RequiredActions)
}

func TestHandle_EditGoesBackward(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()
	state := stateAt(t, models.StepApproval, completeUpdate())
	state.CurrentStep = models.StepApproval

	_, err := d.Handle(state, request(t, blocks.TypeMeetingApproval, handlers.ActionEdit,
		handlers.EditPayload{TargetStep: models.StepTimeDateCollection}))
	require.NoError(t, err)
	assert.Equal(t, models.StepTimeDateCollection, state.CurrentStep)

	// Forward targets are rejected; edit is a correction, not a shortcut.
	_, err = d.Handle(state, request(t, blocks.TypeValidationSummary, handlers.ActionEdit,
		handlers.EditPayload{TargetStep: models.StepCreation}))
	require.ErrorIs(t, err, handlers.ErrMalformedPayload)
}

func TestHandle_MalformedRequestsRejectedBeforeMutation(t *testing.T) {
	t.Parallel()

	d := handlers.NewDispatcher()

	tests := []struct {
		name string
		req  handlers.Request
		want error
	}{
		{
			name: "missing conversation id",
			req: handlers.Request{
				BlockType: blocks.TypeMeetingTypeSelection,
				Action:    handlers.ActionTypeSelect,
			},
			want: handlers.ErrMalformedPayload,
		},
		{
			name: "unknown action",
			req: handlers.Request{
				BlockType:      blocks.TypeMeetingTypeSelection,
				Action:         handlers.Action("explode"),
				ConversationID: "conv-1",
			},
			want: handlers.ErrUnknownAction,
		},
		{
			name: "action on wrong block",
			req: handlers.Request{
				BlockType:      blocks.TypeAgendaEditor,
				Action:         handlers.ActionTypeSelect,
				ConversationID: "conv-1",
			},
			want: handlers.ErrBlockMismatch,
		},
		{
			name: "unparseable payload",
			req: handlers.Request{
				BlockType:      blocks.TypeMeetingTypeSelection,
				Action:         handlers.ActionTypeSelect,
				Data:           json.RawMessage(`{not json`),
				ConversationID: "conv-1",
			},
			want: handlers.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := stateAt(t, models.StepMeetingTypeSelection, nil)
			before := *state

			_, err := d.Handle(state, tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before.MeetingData, state.MeetingData)
			assert.Equal(t, before.CurrentStep, state.CurrentStep)
		})
	}
}

func TestValidateAgenda(t *testing.T) {
	t.Parallel()

	results := handlers.ValidateAgenda("short")
	require.Len(t, results, 1)
	assert.True(t, results[0].Blocking())

	// Long enough but no time markers: advisory only.
	results = handlers.ValidateAgenda(strings.Repeat("discussion points and owners ", 4))
	require.Len(t, results, 1)
	assert.False(t, results[0].Blocking())

	results = handlers.ValidateAgenda("1. Review quarterly numbers (30 min)\n2. Discuss next steps (30 min)")
	assert.Empty(t, results)
}
