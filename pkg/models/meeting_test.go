package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-hq/parley/pkg/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestMeetingData_Apply_TypeLock(t *testing.T) {
	t.Parallel()

	data := models.MeetingData{ID: "m1", Status: models.MeetingStatusDraft}

	err := data.Apply(models.MeetingUpdate{Type: ptr(models.MeetingTypeOnline)})
	require.NoError(t, err)
	assert.Equal(t, models.MeetingTypeOnline, data.Type)

	// Re-setting the same type is a no-op, not a violation.
	err = data.Apply(models.MeetingUpdate{Type: ptr(models.MeetingTypeOnline)})
	require.NoError(t, err)

	err = data.Apply(models.MeetingUpdate{Type: ptr(models.MeetingTypePhysical)})
	require.ErrorIs(t, err, models.ErrMeetingTypeLocked)
	assert.Equal(t, models.MeetingTypeOnline, data.Type)
}

func TestMeetingData_Apply_UnknownType(t *testing.T) {
	t.Parallel()

	data := models.MeetingData{ID: "m1"}

	err := data.Apply(models.MeetingUpdate{Type: ptr(models.MeetingType("hybrid"))})
	require.ErrorIs(t, err, models.ErrUnknownMeetingType)
	assert.Empty(t, data.Type)
}

func TestMeetingData_Apply_StatusMonotonic(t *testing.T) {
	t.Parallel()

	data := models.MeetingData{ID: "m1", Status: models.MeetingStatusApproved}

	err := data.Apply(models.MeetingUpdate{Status: ptr(models.MeetingStatusCreated)})
	require.NoError(t, err)

	err = data.Apply(models.MeetingUpdate{Status: ptr(models.MeetingStatusDraft)})
	require.ErrorIs(t, err, models.ErrStatusRegression)
	assert.Equal(t, models.MeetingStatusCreated, data.Status)
}

func TestMeetingData_Apply_RejectedUpdateAppliesNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update models.MeetingUpdate
	}{
		{
			"first-time type with unknown status",
			models.MeetingUpdate{
				Type:   ptr(models.MeetingTypeOnline),
				Status: ptr(models.MeetingStatus("bogus")),
			},
		},
		{
			"title with regressive status",
			models.MeetingUpdate{
				Title:  ptr("Renamed"),
				Status: ptr(models.MeetingStatusDraft),
			},
		},
		{
			"attendees with unknown type",
			models.MeetingUpdate{
				Type:      ptr(models.MeetingType("hybrid")),
				Attendees: []models.Attendee{{Email: "alice@example.com"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := models.MeetingData{ID: "m1", Status: models.MeetingStatusPendingApproval}
			before := data

			require.Error(t, data.Apply(tt.update))
			assert.Equal(t, before, data)
		})
	}
}

func TestMeetingData_Apply_AttendeesReplacedAtomically(t *testing.T) {
	t.Parallel()

	data := models.MeetingData{
		ID: "m1",
		Attendees: []models.Attendee{
			{Email: "old@example.com"},
			{Email: "older@example.com"},
		},
	}

	// Nil attendees leaves the list untouched.
	require.NoError(t, data.Apply(models.MeetingUpdate{Title: ptr("Sync")}))
	assert.Len(t, data.Attendees, 2)

	require.NoError(t, data.Apply(models.MeetingUpdate{
		Attendees: []models.Attendee{{Email: "new@example.com"}},
	}))
	require.Len(t, data.Attendees, 1)
	assert.Equal(t, "new@example.com", data.Attendees[0].Email)

	// An empty (non-nil) list clears everyone.
	require.NoError(t, data.Apply(models.MeetingUpdate{Attendees: []models.Attendee{}}))
	assert.Empty(t, data.Attendees)
}

func TestMeetingData_Apply_PartialMerge(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	data := models.MeetingData{ID: "m1", Title: "Original"}

	require.NoError(t, data.Apply(models.MeetingUpdate{
		StartTime: &start,
		EndTime:   &end,
		Location:  ptr("Room 4"),
	}))

	assert.Equal(t, "Original", data.Title)
	assert.Equal(t, "Room 4", data.Location)
	assert.Equal(t, time.Hour, data.Duration())
}

func TestMeetingData_Duration_Unset(t *testing.T) {
	t.Parallel()

	data := models.MeetingData{ID: "m1"}
	assert.Zero(t, data.Duration())

	start := time.Now()
	data.StartTime = &start
	assert.Zero(t, data.Duration())
}

func TestMeetingData_AttendeeEmails(t *testing.T) {
	t.Parallel()

	data := models.MeetingData{
		ID: "m1",
		Attendees: []models.Attendee{
			{Email: "a@example.com"},
			{Email: "b@example.com"},
		},
	}

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, data.AttendeeEmails())
}

func TestSplitResults(t *testing.T) {
	t.Parallel()

	results := []models.ValidationResult{
		{Field: "type", IsValid: true, Severity: models.SeverityInfo},
		{Field: "time", IsValid: false, Severity: models.SeverityError},
		{Field: "start_time", IsValid: false, Severity: models.SeverityWarning},
	}

	errs, warnings := models.SplitResults(results)
	require.Len(t, errs, 1)
	require.Len(t, warnings, 1)
	assert.Equal(t, "time", errs[0].Field)
	assert.Equal(t, "start_time", warnings[0].Field)
}
