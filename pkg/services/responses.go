package services

import (
	"github.com/parley-hq/parley/pkg/blocks"
	"github.com/parley-hq/parley/pkg/models"
)

// WorkflowStateSummary is the slice of workflow state the UI needs to
// render progress.
type WorkflowStateSummary struct {
	CurrentStep       models.WorkflowStep `json:"current_step"`
	Progress          int                 `json:"progress"`
	RequiresUserInput bool                `json:"requires_user_input"`
	IsComplete        bool                `json:"is_complete"`
}

// ValidationSummary carries validation outcomes with the response body;
// validation results travel in responses, never as thrown errors.
type ValidationSummary struct {
	Errors   []models.ValidationResult `json:"errors"`
	Warnings []models.ValidationResult `json:"warnings"`
	IsValid  bool                      `json:"is_valid"`
}

// InteractionResponse answers a chat message or a UI block interaction.
type InteractionResponse struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message"`
	ConversationID string               `json:"conversation_id"`
	NextUIBlock    blocks.Block         `json:"next_ui_block,omitempty"`
	WorkflowState  WorkflowStateSummary `json:"workflow_state"`
	Validation     ValidationSummary    `json:"validation"`
}

// AdvancementValidation extends the validation summary with the transition
// verdict and the actions required to proceed.
type AdvancementValidation struct {
	Errors          []models.ValidationResult `json:"errors"`
	Warnings        []models.ValidationResult `json:"warnings"`
	CanProceed      bool                      `json:"can_proceed"`
	RequiredActions []string                  `json:"required_actions,omitempty"`
}

// AdvancementResponse answers an explicit step-advancement request.
type AdvancementResponse struct {
	Success        bool                  `json:"success"`
	Message        string                `json:"message"`
	ConversationID string                `json:"conversation_id"`
	PreviousStep   models.WorkflowStep   `json:"previous_step"`
	CurrentStep    models.WorkflowStep   `json:"current_step"`
	NextUIBlock    blocks.Block          `json:"next_ui_block,omitempty"`
	Validation     AdvancementValidation `json:"validation"`
}

// progressSteps are the steps where the machine, not the user, is working.
var progressSteps = map[models.WorkflowStep]bool{
	models.StepCalendarAccessVerification: true,
	models.StepAvailabilityCheck:          true,
	models.StepCreation:                   true,
}

func stateSummary(state *models.WorkflowState) WorkflowStateSummary {
	return WorkflowStateSummary{
		CurrentStep:       state.CurrentStep,
		Progress:          state.Progress,
		RequiresUserInput: !state.IsComplete && !progressSteps[state.CurrentStep],
		IsComplete:        state.IsComplete,
	}
}

func validationSummary(errs, warnings []models.ValidationResult) ValidationSummary {
	if errs == nil {
		errs = []models.ValidationResult{}
	}

	if warnings == nil {
		warnings = []models.ValidationResult{}
	}

	return ValidationSummary{
		Errors:   errs,
		Warnings: warnings,
		IsValid:  len(errs) == 0,
	}
}
