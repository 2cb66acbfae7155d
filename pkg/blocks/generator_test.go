package blocks_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-hq/parley/pkg/blocks"
	"github.com/parley-hq/parley/pkg/models"
)

func testState(step models.WorkflowStep) *models.WorkflowState {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	return &models.WorkflowState{
		ConversationID: "conv-1",
		CurrentStep:    step,
		MeetingData: models.MeetingData{
			ID:        "m1",
			Title:     "Quarterly Review",
			Type:      models.MeetingTypeOnline,
			StartTime: &start,
			EndTime:   &end,
			Attendees: []models.Attendee{{Email: "alice@example.com"}},
			Agenda:    "1. Numbers (30 min)\n2. Plans (30 min)",
			Status:    models.MeetingStatusDraft,
		},
	}
}

func TestGenerate_BlockTypePerStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		step models.WorkflowStep
		want blocks.Type
	}{
		{models.StepIntentDetection, blocks.TypeIntentPrompt},
		{models.StepCalendarAccessVerification, blocks.TypeCalendarAccess},
		{models.StepMeetingTypeSelection, blocks.TypeMeetingTypeSelection},
		{models.StepTimeDateCollection, blocks.TypeTimeCollection},
		{models.StepAvailabilityCheck, blocks.TypeAvailabilityCheck},
		{models.StepConflictResolution, blocks.TypeConflictResolution},
		{models.StepAttendeeCollection, blocks.TypeAttendeeManagement},
		{models.StepMeetingDetailsCollection, blocks.TypeMeetingDetails},
		{models.StepValidation, blocks.TypeValidationSummary},
		{models.StepAgendaGeneration, blocks.TypeAgendaEditor},
		{models.StepAgendaApproval, blocks.TypeAgendaEditor},
		{models.StepApproval, blocks.TypeMeetingApproval},
		{models.StepCreation, blocks.TypeCreationProgress},
		{models.StepCompleted, blocks.TypeCompletionSummary},
	}

	for _, tt := range tests {
		block := blocks.Generate(testState(tt.step))
		assert.Equal(t, tt.want, block.BlockType(), "step %s", tt.step)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	for _, step := range models.StepOrder {
		state := testState(step)

		first := blocks.Generate(state)
		second := blocks.Generate(state)
		assert.Equal(t, first, second, "step %s", step)
	}
}

func TestGenerate_AgendaEditorModes(t *testing.T) {
	t.Parallel()

	editing, ok := blocks.Generate(testState(models.StepAgendaGeneration)).(blocks.AgendaEditor)
	require.True(t, ok)
	assert.False(t, editing.IsApprovalMode)
	assert.Equal(t, 60, editing.DurationMinutes)
	assert.Equal(t, "Quarterly Review", editing.MeetingTitle)

	approving, ok := blocks.Generate(testState(models.StepAgendaApproval)).(blocks.AgendaEditor)
	require.True(t, ok)
	assert.True(t, approving.IsApprovalMode)
}

func TestGenerate_AttendeeManagementRequiredForOnline(t *testing.T) {
	t.Parallel()

	state := testState(models.StepAttendeeCollection)

	block, ok := blocks.Generate(state).(blocks.AttendeeManagement)
	require.True(t, ok)
	assert.True(t, block.IsRequired)

	state.MeetingData.Type = models.MeetingTypePhysical

	block, ok = blocks.Generate(state).(blocks.AttendeeManagement)
	require.True(t, ok)
	assert.False(t, block.IsRequired)
}

func TestGenerate_AttendeeManagementNeverNilList(t *testing.T) {
	t.Parallel()

	state := testState(models.StepAttendeeCollection)
	state.MeetingData.Attendees = nil

	block, ok := blocks.Generate(state).(blocks.AttendeeManagement)
	require.True(t, ok)
	assert.NotNil(t, block.Attendees)
	assert.Empty(t, block.Attendees)
}

func TestGenerate_MeetingApprovalCarriesFullMeeting(t *testing.T) {
	t.Parallel()

	state := testState(models.StepApproval)
	state.ValidationResults = []models.ValidationResult{
		{Field: "type", IsValid: true, Severity: models.SeverityInfo},
	}

	block, ok := blocks.Generate(state).(blocks.MeetingApproval)
	require.True(t, ok)
	assert.Equal(t, state.MeetingData, block.Meeting)
	assert.Equal(t, state.ValidationResults, block.ValidationResults)
}

func TestBlocks_WireTypeTag(t *testing.T) {
	t.Parallel()

	// Every serialized block carries its discriminator so the frontend can
	// dispatch without inspecting the other fields.
	for _, step := range models.StepOrder {
		block := blocks.Generate(testState(step))

		raw, err := json.Marshal(block)
		require.NoError(t, err)

		var envelope struct {
			Type blocks.Type `json:"type"`
		}

		require.NoError(t, json.Unmarshal(raw, &envelope))
		assert.Equal(t, block.BlockType(), envelope.Type, "step %s", step)
	}
}
