package models

// WorkflowStep is one stage in the fixed meeting-creation sequence.
type WorkflowStep string

const (
	StepIntentDetection            WorkflowStep = "intent_detection"
	StepCalendarAccessVerification WorkflowStep = "calendar_access_verification"
	StepMeetingTypeSelection       WorkflowStep = "meeting_type_selection"
	StepTimeDateCollection         WorkflowStep = "time_date_collection"
	StepAvailabilityCheck          WorkflowStep = "availability_check"
	StepConflictResolution         WorkflowStep = "conflict_resolution"
	StepAttendeeCollection         WorkflowStep = "attendee_collection"
	StepMeetingDetailsCollection   WorkflowStep = "meeting_details_collection"
	StepValidation                 WorkflowStep = "validation"
	StepAgendaGeneration           WorkflowStep = "agenda_generation"
	StepAgendaApproval             WorkflowStep = "agenda_approval"
	StepApproval                   WorkflowStep = "approval"
	StepCreation                   WorkflowStep = "creation"
	StepCompleted                  WorkflowStep = "completed"
)

// StepOrder is the total ordering of workflow steps. Forward transitions
// must satisfy the target step's entry requirements; backward transitions
// are always permitted.
var StepOrder = []WorkflowStep{
	StepIntentDetection,
	StepCalendarAccessVerification,
	StepMeetingTypeSelection,
	StepTimeDateCollection,
	StepAvailabilityCheck,
	StepConflictResolution,
	StepAttendeeCollection,
	StepMeetingDetailsCollection,
	StepValidation,
	StepAgendaGeneration,
	StepAgendaApproval,
	StepApproval,
	StepCreation,
	StepCompleted,
}

// Index returns the position of the step in StepOrder, or -1 for an
// unknown step.
func (s WorkflowStep) Index() int {
	for i, step := range StepOrder {
		if step == s {
			return i
		}
	}

	return -1
}

// Valid reports whether the step is a member of the closed enum.
func (s WorkflowStep) Valid() bool {
	return s.Index() >= 0
}

// Next returns the step following s in StepOrder. The second return value
// is false when s is the terminal step or unknown.
func (s WorkflowStep) Next() (WorkflowStep, bool) {
	idx := s.Index()
	if idx < 0 || idx >= len(StepOrder)-1 {
		return s, false
	}

	return StepOrder[idx+1], true
}

// Before reports whether s precedes other in the step ordering.
func (s WorkflowStep) Before(other WorkflowStep) bool {
	return s.Index() < other.Index()
}

// Progress returns the completion percentage for the step, rounded to the
// nearest integer.
func (s WorkflowStep) Progress() int {
	idx := s.Index()
	if idx < 0 {
		return 0
	}

	total := len(StepOrder) - 1

	return int(float64(idx)/float64(total)*100 + 0.5)
}
