package models

import "time"

// Severity classifies a validation result. Only error severity blocks a
// forward transition.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationResult is the outcome of one business-rule check.
type ValidationResult struct {
	Field    string   `json:"field"`
	IsValid  bool     `json:"is_valid"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Blocking reports whether the result must block a forward transition.
func (r ValidationResult) Blocking() bool {
	return !r.IsValid && r.Severity == SeverityError
}

// WorkflowState is the full state of one meeting-creation conversation. It
// is mutated exclusively through the workflow machine and the interaction
// handlers, and stored per conversation in the session store.
type WorkflowState struct {
	ConversationID             string             `json:"conversation_id"    validate:"required"`
	CurrentStep                WorkflowStep       `json:"current_step"`
	MeetingData                MeetingData        `json:"meeting_data"`
	ValidationResults          []ValidationResult `json:"validation_results"`
	PendingActions             []string           `json:"pending_actions"`
	IsComplete                 bool               `json:"is_complete"`
	Errors                     []ValidationResult `json:"errors"`
	Warnings                   []ValidationResult `json:"warnings"`
	TimeCollectionComplete     bool               `json:"time_collection_complete"`
	AttendeeCollectionComplete bool               `json:"attendee_collection_complete"`
	Progress                   int                `json:"progress"`

	// AgendaGeneration counts agenda generation dispatches for this
	// conversation. An in-flight generation result is discarded when the
	// stored counter has advanced past the value captured at dispatch.
	AgendaGeneration int64 `json:"agenda_generation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SplitResults partitions validation results into blocking errors and
// non-blocking warnings (info results count as warnings).
func SplitResults(results []ValidationResult) (errs, warnings []ValidationResult) {
	for _, result := range results {
		if result.IsValid {
			continue
		}

		if result.Severity == SeverityError {
			errs = append(errs, result)
		} else {
			warnings = append(warnings, result)
		}
	}

	return errs, warnings
}
