package blocks

import (
	"fmt"

	"github.com/parley-hq/parley/pkg/models"
)

// Generate maps the workflow state to the UI block for its current step.
// It is a pure function of the state: calling it twice on an unmodified
// state yields identical blocks.
func Generate(state *models.WorkflowState) Block {
	data := state.MeetingData

	switch state.CurrentStep {
	case models.StepIntentDetection:
		return IntentPrompt{
			Type:     TypeIntentPrompt,
			Question: "What would you like to schedule?",
		}

	case models.StepCalendarAccessVerification:
		return CalendarAccess{
			Type:      TypeCalendarAccess,
			MeetingID: data.ID,
			Message:   "Checking your calendar access",
		}

	case models.StepMeetingTypeSelection:
		return MeetingTypeSelection{
			Type:            TypeMeetingTypeSelection,
			Question:        "Will this meeting be in person or online?",
			MeetingID:       data.ID,
			CurrentType:     data.Type,
			CurrentLocation: data.Location,
		}

	case models.StepTimeDateCollection:
		return TimeCollection{
			Type:      TypeTimeCollection,
			MeetingID: data.ID,
			Question:  "When should the meeting take place?",
			StartTime: data.StartTime,
			EndTime:   data.EndTime,
		}

	case models.StepAvailabilityCheck:
		return AvailabilityCheck{
			Type:      TypeAvailabilityCheck,
			MeetingID: data.ID,
			StartTime: data.StartTime,
			EndTime:   data.EndTime,
			Attendees: data.AttendeeEmails(),
		}

	case models.StepConflictResolution:
		return ConflictResolution{
			Type:      TypeConflictResolution,
			MeetingID: data.ID,
			Message:   "The selected time conflicts with an existing event. Pick an alternative.",
		}

	case models.StepAttendeeCollection:
		return AttendeeManagement{
			Type:             TypeAttendeeManagement,
			MeetingID:        data.ID,
			Attendees:        attendeesOrEmpty(data.Attendees),
			MeetingType:      data.Type,
			IsRequired:       data.Type == models.MeetingTypeOnline,
			ValidationErrors: state.Errors,
		}

	case models.StepMeetingDetailsCollection:
		return MeetingDetails{
			Type:      TypeMeetingDetails,
			MeetingID: data.ID,
			Question:  "What is the meeting about?",
			Title:     data.Title,
			Location:  data.Location,
		}

	case models.StepValidation:
		return ValidationSummary{
			Type:       TypeValidationSummary,
			MeetingID:  data.ID,
			Results:    state.ValidationResults,
			CanProceed: len(state.Errors) == 0,
		}

	case models.StepAgendaGeneration:
		return agendaEditor(state, false)

	case models.StepAgendaApproval:
		return agendaEditor(state, true)

	case models.StepApproval:
		return MeetingApproval{
			Type:              TypeMeetingApproval,
			MeetingID:         data.ID,
			Meeting:           data,
			ValidationResults: state.ValidationResults,
		}

	case models.StepCreation:
		return CreationProgress{
			Type:      TypeCreationProgress,
			MeetingID: data.ID,
			Message:   "Creating the calendar event",
		}

	case models.StepCompleted:
		return CompletionSummary{
			Type:        TypeCompletionSummary,
			MeetingID:   data.ID,
			MeetingLink: data.MeetingLink,
			Message:     fmt.Sprintf("%q is scheduled and the agenda was sent to attendees.", data.Title),
		}

	default:
		return IntentPrompt{
			Type:     TypeIntentPrompt,
			Question: "What would you like to schedule?",
		}
	}
}

func agendaEditor(state *models.WorkflowState, approvalMode bool) AgendaEditor {
	data := state.MeetingData

	return AgendaEditor{
		Type:            TypeAgendaEditor,
		MeetingID:       data.ID,
		InitialAgenda:   data.Agenda,
		MeetingTitle:    data.Title,
		DurationMinutes: int(data.Duration().Minutes()),
		IsApprovalMode:  approvalMode,
		Validation:      state.Errors,
	}
}

func attendeesOrEmpty(attendees []models.Attendee) []models.Attendee {
	if attendees == nil {
		return []models.Attendee{}
	}

	return attendees
}
