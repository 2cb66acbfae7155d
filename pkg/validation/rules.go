// Package validation implements the business rules gating workflow step
// transitions. Rules are pure functions over the meeting data and a target
// step; they never mutate state.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/parley-hq/parley/pkg/models"
)

const (
	// MinLocationLength is the minimum length of a physical meeting location.
	MinLocationLength = 3

	// MinDuration and MaxDuration bound the advisory duration warnings.
	MinDuration = 15 * time.Minute
	MaxDuration = 8 * time.Hour
)

// Rule checks one business constraint against the meeting data for a given
// target step and returns zero or more results.
type Rule func(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult

// Rules is the fixed rule set applied before every forward transition. The
// set is cumulative: a rule required before step N is also required before
// every step after N, so validating the target step transitively covers all
// intermediate steps.
func Rules() []Rule {
	return []Rule{
		TypePresence,
		AttendeesForOnline,
		AttendeeEmails,
		TimePresence,
		TimeOrdering,
		LocationForPhysical,
		TitlePresence,
		ScheduleWarnings,
	}
}

// Evaluate runs the full rule set for the target step.
func Evaluate(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult {
	var results []models.ValidationResult
	for _, rule := range Rules() {
		results = append(results, rule(data, target)...)
	}

	return results
}

// requiredFrom reports whether the target step is at or past the given step.
func requiredFrom(target, step models.WorkflowStep) bool {
	return target.Index() >= step.Index()
}

// TypePresence requires the meeting type to be set before any step after
// meeting type selection.
func TypePresence(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult {
	if !requiredFrom(target, models.StepTimeDateCollection) {
		return nil
	}

	if data.Type == "" {
		return []models.ValidationResult{{
			Field:    "type",
			IsValid:  false,
			Message:  "Select a meeting type before continuing",
			Severity: models.SeverityError,
		}}
	}

	return []models.ValidationResult{{Field: "type", IsValid: true, Severity: models.SeverityInfo}}
}

// AttendeesForOnline requires at least one attendee before leaving attendee
// collection for an online meeting.
func AttendeesForOnline(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult {
	if data.Type != models.MeetingTypeOnline {
		return nil
	}

	if !requiredFrom(target, models.StepMeetingDetailsCollection) {
		return nil
	}

	if len(data.Attendees) == 0 {
		return []models.ValidationResult{{
			Field:    "attendees",
			IsValid:  false,
			Message:  "Online meetings require at least one attendee",
			Severity: models.SeverityError,
		}}
	}

	return []models.ValidationResult{{Field: "attendees", IsValid: true, Severity: models.SeverityInfo}}
}

// AttendeeEmails checks address format and uniqueness whenever attendees
// are present, regardless of the target step.
func AttendeeEmails(data models.MeetingData, _ models.WorkflowStep) []models.ValidationResult {
	var results []models.ValidationResult

	seen := make(map[string]bool, len(data.Attendees))

	for _, attendee := range data.Attendees {
		email := strings.ToLower(strings.TrimSpace(attendee.Email))

		if _, err := mail.ParseAddress(attendee.Email); err != nil {
			results = append(results, models.ValidationResult{
				Field:    "attendees",
				IsValid:  false,
				Message:  fmt.Sprintf("Invalid attendee email address: %s", attendee.Email),
				Severity: models.SeverityError,
			})

			continue
		}

		if seen[email] {
			results = append(results, models.ValidationResult{
				Field:    "attendees",
				IsValid:  false,
				Message:  fmt.Sprintf("Duplicate attendee email address: %s", attendee.Email),
				Severity: models.SeverityError,
			})
		}

		seen[email] = true
	}

	return results
}

// TimePresence requires both time bounds before the validation step.
func TimePresence(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult {
	if !requiredFrom(target, models.StepValidation) {
		return nil
	}

	if data.StartTime == nil || data.EndTime == nil {
		return []models.ValidationResult{{
			Field:    "time",
			IsValid:  false,
			Message:  "Set both a start and an end time",
			Severity: models.SeverityError,
		}}
	}

	return []models.ValidationResult{{Field: "time", IsValid: true, Severity: models.SeverityInfo}}
}

// TimeOrdering rejects an inverted or empty time window as soon as both
// bounds are present.
func TimeOrdering(data models.MeetingData, _ models.WorkflowStep) []models.ValidationResult {
	if data.StartTime == nil || data.EndTime == nil {
		return nil
	}

	if !data.StartTime.Before(*data.EndTime) {
		return []models.ValidationResult{{
			Field:    "time",
			IsValid:  false,
			Message:  "The meeting must start before it ends",
			Severity: models.SeverityError,
		}}
	}

	return nil
}

// LocationForPhysical requires a usable location for physical meetings
// before creation.
func LocationForPhysical(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult {
	if data.Type != models.MeetingTypePhysical {
		return nil
	}

	if !requiredFrom(target, models.StepCreation) {
		return nil
	}

	if len(strings.TrimSpace(data.Location)) < MinLocationLength {
		return []models.ValidationResult{{
			Field:    "location",
			IsValid:  false,
			Message:  "Location is required for physical meetings",
			Severity: models.SeverityError,
		}}
	}

	return []models.ValidationResult{{Field: "location", IsValid: true, Severity: models.SeverityInfo}}
}

// TitlePresence requires a meeting title before creation.
func TitlePresence(data models.MeetingData, target models.WorkflowStep) []models.ValidationResult {
	if !requiredFrom(target, models.StepCreation) {
		return nil
	}

	if strings.TrimSpace(data.Title) == "" {
		return []models.ValidationResult{{
			Field:    "title",
			IsValid:  false,
			Message:  "Add a meeting title",
			Severity: models.SeverityError,
		}}
	}

	return []models.ValidationResult{{Field: "title", IsValid: true, Severity: models.SeverityInfo}}
}

// ScheduleWarnings surfaces advisory issues that never block a transition:
// a past-dated start and an unusually short or long duration.
func ScheduleWarnings(data models.MeetingData, _ models.WorkflowStep) []models.ValidationResult {
	var results []models.ValidationResult

	if data.StartTime != nil && data.StartTime.Before(time.Now()) {
		results = append(results, models.ValidationResult{
			Field:    "start_time",
			IsValid:  false,
			Message:  "The meeting is scheduled in the past",
			Severity: models.SeverityWarning,
		})
	}

	if data.StartTime != nil && data.EndTime != nil && data.StartTime.Before(*data.EndTime) {
		duration := data.Duration()

		if duration < MinDuration {
			results = append(results, models.ValidationResult{
				Field:    "time",
				IsValid:  false,
				Message:  fmt.Sprintf("The meeting is shorter than %s", MinDuration),
				Severity: models.SeverityWarning,
			})
		}

		if duration > MaxDuration {
			results = append(results, models.ValidationResult{
				Field:    "time",
				IsValid:  false,
				Message:  fmt.Sprintf("The meeting is longer than %s", MaxDuration),
				Severity: models.SeverityWarning,
			})
		}
	}

	return results
}
