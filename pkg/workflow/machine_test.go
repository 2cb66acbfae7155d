package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/workflow"
)

func ptr[T any](v T) *T {
	return &v
}

func completeState(t *testing.T) *models.WorkflowState {
	t.Helper()

	start := time.Now().Add(24 * time.Hour)
	end := start.Add(time.Hour)

	state, err := workflow.NewState("conv-1", &models.MeetingUpdate{
		Title:     ptr("Quarterly Review"),
		Type:      ptr(models.MeetingTypeOnline),
		StartTime: &start,
		EndTime:   &end,
		Attendees: []models.Attendee{{Email: "alice@example.com"}},
	})
	require.NoError(t, err)

	return state
}

func TestNewState_Empty(t *testing.T) {
	t.Parallel()

	state, err := workflow.NewState("conv-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "conv-1", state.ConversationID)
	assert.Equal(t, models.StepIntentDetection, state.CurrentStep)
	assert.Equal(t, models.MeetingStatusDraft, state.MeetingData.Status)
	assert.NotEmpty(t, state.MeetingData.ID)
	assert.False(t, state.IsComplete)
	assert.Zero(t, state.Progress)
	assert.Empty(t, state.Errors)
}

func TestNewState_InitialDataSkipsSatisfiedSteps(t *testing.T) {
	t.Parallel()

	// Complete data lands on validation, never past it.
	state := completeState(t)
	assert.Equal(t, models.StepValidation, state.CurrentStep)

	// Type alone clears the steps up to attendee collection for an online
	// meeting; attendees are then required to go further.
	state, err := workflow.NewState("conv-2", &models.MeetingUpdate{
		Type: ptr(models.MeetingTypeOnline),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StepAttendeeCollection, state.CurrentStep)
}

func TestNewState_RejectsBadInitialData(t *testing.T) {
	t.Parallel()

	_, err := workflow.NewState("conv-1", &models.MeetingUpdate{
		Type: ptr(models.MeetingType("hybrid")),
	})
	require.ErrorIs(t, err, models.ErrUnknownMeetingType)
}

func TestAdvance_SequentialToCompletion(t *testing.T) {
	t.Parallel()

	state := completeState(t)

	// From validation the remaining steps are reachable one by one; the
	// progress value grows with every forward move.
	previous := state.Progress

	for !state.IsComplete {
		_, err := workflow.Advance(state, "")
		require.NoError(t, err)
		assert.Greater(t, state.Progress, previous)
		previous = state.Progress
	}

	assert.Equal(t, models.StepCompleted, state.CurrentStep)
	assert.Equal(t, 100, state.Progress)

	_, err := workflow.Advance(state, "")
	require.ErrorIs(t, err, workflow.ErrWorkflowComplete)
}

func TestAdvance_BlockedLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	state, err := workflow.NewState("conv-1", nil)
	require.NoError(t, err)

	before := state.CurrentStep

	check, err := workflow.Advance(state, models.StepCreation)
	require.ErrorIs(t, err, workflow.ErrTransitionBlocked)
	assert.Equal(t, before, state.CurrentStep)
	assert.False(t, check.CanTransition)

	// Every unmet requirement is reported at once, not just the first.
	assert.ElementsMatch(t, []string{
		"Select meeting type",
		"Set meeting start and end time",
		"Add a meeting title",
	}, check.RequiredActions)
}

func TestAdvance_UnknownStep(t *testing.T) {
	t.Parallel()

	state := completeState(t)

	_, err := workflow.Advance(state, models.WorkflowStep("bogus"))
	require.ErrorIs(t, err, workflow.ErrUnknownStep)
}

func TestAdvance_BackwardAlwaysAllowed(t *testing.T) {
	t.Parallel()

	state := completeState(t)
	require.Equal(t, models.StepValidation, state.CurrentStep)

	check, err := workflow.Advance(state, models.StepMeetingTypeSelection)
	require.NoError(t, err)
	assert.True(t, check.CanTransition)
	assert.Equal(t, models.StepMeetingTypeSelection, state.CurrentStep)

	// Progress tracks the step, so a backward move lowers it.
	assert.Equal(t, models.StepMeetingTypeSelection.Progress(), state.Progress)
}

func TestAdvance_MultiStepSkipValidatesTarget(t *testing.T) {
	t.Parallel()

	// A jump over several steps is permitted when the target step's entry
	// requirements pass; the skipped steps need no separate pass because
	// the rules are cumulative.
	state := completeState(t)

	_, err := workflow.Advance(state, models.StepApproval)
	require.NoError(t, err)
	assert.Equal(t, models.StepApproval, state.CurrentStep)
}

func TestCanTransition_OnlineNeedsAttendees(t *testing.T) {
	t.Parallel()

	state, err := workflow.NewState("conv-1", &models.MeetingUpdate{
		Type: ptr(models.MeetingTypeOnline),
	})
	require.NoError(t, err)

	check := workflow.CanTransition(state, models.StepMeetingDetailsCollection)
	assert.False(t, check.CanTransition)
	assert.Contains(t, check.RequiredActions, "Add attendees for online meeting")

	require.NoError(t, workflow.ApplyUpdate(state, models.MeetingUpdate{
		Attendees: []models.Attendee{{Email: "bob@example.com"}},
	}))

	check = workflow.CanTransition(state, models.StepMeetingDetailsCollection)
	assert.True(t, check.CanTransition)
}

func TestApplyUpdate_RefreshesDerivedFields(t *testing.T) {
	t.Parallel()

	state, err := workflow.NewState("conv-1", &models.MeetingUpdate{
		Type: ptr(models.MeetingTypeOnline),
	})
	require.NoError(t, err)
	assert.False(t, state.TimeCollectionComplete)
	assert.False(t, state.AttendeeCollectionComplete)

	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	require.NoError(t, workflow.ApplyUpdate(state, models.MeetingUpdate{
		StartTime: &start,
		EndTime:   &end,
		Attendees: []models.Attendee{{Email: "bob@example.com"}},
	}))

	assert.True(t, state.TimeCollectionComplete)
	assert.True(t, state.AttendeeCollectionComplete)
}

func TestApplyUpdate_RejectedMergeLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	state := completeState(t)
	before := state.MeetingData

	err := workflow.ApplyUpdate(state, models.MeetingUpdate{
		Type: ptr(models.MeetingTypePhysical),
	})
	require.ErrorIs(t, err, models.ErrMeetingTypeLocked)
	assert.Equal(t, before, state.MeetingData)

	// A multi-field update with one rejected field applies nothing at all,
	// including the fields that would have been fine on their own.
	err = workflow.ApplyUpdate(state, models.MeetingUpdate{
		Title:  ptr("Renamed"),
		Status: ptr(models.MeetingStatus("bogus")),
	})
	require.Error(t, err)
	assert.Equal(t, before, state.MeetingData)
}
