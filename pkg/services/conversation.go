package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parley-hq/parley/pkg/assistant"
	"github.com/parley-hq/parley/pkg/blocks"
	"github.com/parley-hq/parley/pkg/calendar"
	"github.com/parley-hq/parley/pkg/eventbus"
	"github.com/parley-hq/parley/pkg/events"
	"github.com/parley-hq/parley/pkg/handlers"
	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/otelhelper"
	"github.com/parley-hq/parley/pkg/session"
	"github.com/parley-hq/parley/pkg/workflow"
)

// Conversation orchestrates one chat-driven meeting-creation flow: it owns
// the session store, applies interactions through the handlers, and calls
// the external collaborators outside the per-conversation critical section.
type Conversation struct {
	store      session.Store
	locks      *session.KeyedMutex
	dispatcher *handlers.Dispatcher
	assistant  *assistant.Client
	calendar   *calendar.Client
	bus        eventbus.EventPublisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// ConversationOption configures the service.
type ConversationOption func(*Conversation)

// WithTracer enables tracing of conversation operations.
func WithTracer(tracer trace.Tracer) ConversationOption {
	return func(c *Conversation) {
		c.tracer = tracer
	}
}

// NewConversation creates the conversation service.
func NewConversation(
	store session.Store,
	assistantClient *assistant.Client,
	calendarClient *calendar.Client,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...ConversationOption,
) *Conversation {
	c := &Conversation{
		store:      store,
		locks:      session.NewKeyedMutex(),
		dispatcher: handlers.NewDispatcher(),
		assistant:  assistantClient,
		calendar:   calendarClient,
		bus:        bus,
		logger:     logger.With("module", "conversation_service"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HandleMessage processes a free-text chat message. A confident scheduling
// intent starts a workflow; anything else is answered without creating
// state.
func (c *Conversation) HandleMessage(ctx context.Context, conversationID, message string) (*InteractionResponse, error) {
	if conversationID == "" || strings.TrimSpace(message) == "" {
		return nil, NewServiceError("HandleMessage", CodeInvalidRequest,
			"conversation ID and message are required", handlers.ErrMalformedPayload)
	}

	ctx, span := c.startSpan(ctx, "conversation.message",
		attribute.String(otelhelper.ConversationIDKey, conversationID))
	defer span.End()

	// An existing conversation keeps its current block; mid-flow free text
	// does not mutate the workflow.
	unlock := c.locks.Lock(conversationID)
	state, err := c.store.Get(ctx, conversationID)
	unlock()

	if err == nil {
		return c.respond(state, "Let's pick up where we left off.", nil, true), nil
	} else if !errors.Is(err, session.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	// Intent extraction happens before any state exists, outside any lock.
	intent, err := c.assistant.ExtractIntent(ctx, assistant.IntentRequest{Message: message})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, NewServiceError("HandleMessage", CodeUpstreamUnavailable,
			"intent extraction failed", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err))
	}

	if !intent.ShouldSchedule() {
		return &InteractionResponse{
			Success:        true,
			Message:        "I can help you schedule meetings. Tell me what you'd like to set up.",
			ConversationID: conversationID,
			Validation:     validationSummary(nil, nil),
		}, nil
	}

	initial := c.initialUpdate(ctx, intent)

	state, err = workflow.NewState(conversationID, &initial)
	if err != nil {
		return nil, NewServiceError("HandleMessage", CodeInvalidRequest,
			"extracted meeting data was rejected", err)
	}

	unlock = c.locks.Lock(conversationID)
	defer unlock()

	if err := c.store.Create(ctx, state); err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			return nil, NewServiceError("HandleMessage", CodeBusinessRuleViolation,
				"a workflow is already in progress for this conversation", err)
		}

		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	c.publish(ctx, conversationID, events.WorkflowStarted{
		BaseEvent:  c.baseEvent(events.WorkflowStartedEvent, state),
		Intent:     intent.Intent,
		Confidence: intent.Confidence,
	})

	return c.respond(state, "Great, let's set that meeting up.", nil, true), nil
}

// initialUpdate seeds meeting data from the extracted intent. Participants
// that are not addresses are dropped; they get collected properly later.
func (c *Conversation) initialUpdate(ctx context.Context, intent *assistant.IntentResult) models.MeetingUpdate {
	update := models.MeetingUpdate{}

	title := intent.Fields.SuggestedTitle
	if title == "" && intent.Fields.Purpose != "" {
		generated, err := c.assistant.GenerateTitle(ctx, assistant.TitleRequest{
			Purpose:      intent.Fields.Purpose,
			Participants: intent.Fields.Participants,
		})
		if err != nil {
			c.logger.WarnContext(ctx, "Title generation failed, collecting title later", "error", err)
		} else {
			title = generated.Title
		}
	}

	if title != "" {
		update.Title = &title
	}

	var attendees []models.Attendee

	for _, participant := range intent.Fields.Participants {
		if strings.Contains(participant, "@") {
			attendees = append(attendees, models.Attendee{Email: participant, IsRequired: true})
		}
	}

	if attendees != nil {
		update.Attendees = attendees
	}

	return update
}

// HandleInteraction applies one UI block interaction. Validation failures
// travel in the response body; only malformed payloads and unknown
// conversations surface as errors.
func (c *Conversation) HandleInteraction(ctx context.Context, req handlers.Request) (*InteractionResponse, error) {
	ctx, span := c.startSpan(ctx, "conversation.interaction",
		attribute.String(otelhelper.ConversationIDKey, req.ConversationID),
		attribute.String(otelhelper.ActionKey, string(req.Action)),
		attribute.String(otelhelper.BlockTypeKey, string(req.BlockType)))
	defer span.End()

	unlock := c.locks.Lock(req.ConversationID)

	state, err := c.store.Get(ctx, req.ConversationID)
	if err != nil {
		unlock()

		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, NewServiceError("HandleInteraction", CodeWorkflowNotFound,
				"workflow not found", err)
		}

		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	previousStep := state.CurrentStep

	result, err := c.dispatcher.Handle(state, req)

	switch {
	case err == nil:
		// Fall through to persistence.

	case errors.Is(err, workflow.ErrTransitionBlocked), errors.Is(err, workflow.ErrWorkflowComplete):
		// The transition was refused but any merged fields stay; persist
		// and answer with the blocking validation attached.
		if updateErr := c.store.Update(ctx, state); updateErr != nil {
			unlock()

			return nil, fmt.Errorf("failed to persist conversation: %w", updateErr)
		}

		unlock()

		message := "The workflow cannot move forward yet"
		if result != nil && result.Message != "" {
			message = result.Message
		}

		return c.respond(state, message, result, false), nil

	case errors.Is(err, models.ErrMeetingTypeLocked):
		unlock()

		return c.businessRuleResponse(state,
			"The meeting type is locked and cannot be changed", "type"), nil

	case errors.Is(err, models.ErrStatusRegression):
		unlock()

		return c.businessRuleResponse(state,
			"The meeting already moved past that point", "status"), nil

	default:
		unlock()
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := c.store.Update(ctx, state); err != nil {
		unlock()

		return nil, fmt.Errorf("failed to persist conversation: %w", err)
	}

	if state.CurrentStep != previousStep {
		c.publish(ctx, req.ConversationID, events.StepAdvanced{
			BaseEvent:    c.baseEvent(events.StepAdvancedEvent, state),
			PreviousStep: previousStep,
			CurrentStep:  state.CurrentStep,
			Progress:     state.Progress,
		})
	}

	// External collaborators run outside the critical section; the state is
	// only mutated again once their responses are in.
	switch result.Effect {
	case handlers.EffectGenerateAgenda:
		snapshot := *state
		unlock()

		return c.runAgendaGeneration(ctx, snapshot)

	case handlers.EffectCreateMeeting:
		snapshot := *state
		unlock()

		return c.runMeetingCreation(ctx, snapshot)

	default:
		unlock()

		return c.respond(state, result.Message, result, true), nil
	}
}

// runAgendaGeneration calls the assistant with the lock released, then
// applies the agenda only if no newer regeneration was dispatched while
// the call was in flight.
func (c *Conversation) runAgendaGeneration(ctx context.Context, snapshot models.WorkflowState) (*InteractionResponse, error) {
	generation := snapshot.AgendaGeneration
	agenda := c.generateAgenda(ctx, snapshot.MeetingData)

	unlock := c.locks.Lock(snapshot.ConversationID)
	defer unlock()

	state, err := c.store.Get(ctx, snapshot.ConversationID)
	if err != nil {
		return nil, NewServiceError("runAgendaGeneration", CodeWorkflowNotFound,
			"workflow ended while the agenda was being drafted", err)
	}

	if state.AgendaGeneration != generation {
		// A newer regenerate superseded this call; discard the stale draft.
		c.logger.InfoContext(ctx, "Discarding stale agenda draft",
			"conversation_id", snapshot.ConversationID,
			"generation", generation,
			"current_generation", state.AgendaGeneration)

		return c.respond(state, "A newer agenda draft is on its way.", nil, true), nil
	}

	if err := workflow.ApplyUpdate(state, models.MeetingUpdate{Agenda: &agenda}); err != nil {
		return nil, err
	}

	if err := c.store.Update(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist agenda: %w", err)
	}

	return c.respond(state, "Here is a draft agenda. Edit it or approve it.", nil, true), nil
}

// generateAgenda never fails: when the assistant is unavailable after
// retries it falls back to a templated agenda.
func (c *Conversation) generateAgenda(ctx context.Context, data models.MeetingData) string {
	req := assistant.AgendaRequest{
		MeetingID:       data.ID,
		Title:           data.Title,
		Participants:    data.AttendeeEmails(),
		DurationMinutes: int(data.Duration().Minutes()),
		MeetingLink:     data.MeetingLink,
	}

	if data.StartTime != nil {
		req.StartTime = data.StartTime.Format(time.RFC3339)
	}

	if data.EndTime != nil {
		req.EndTime = data.EndTime.Format(time.RFC3339)
	}

	result, err := c.assistant.GenerateAgenda(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "Agenda generation failed, using fallback template",
			"meeting_id", data.ID, "error", err)

		return assistant.FallbackAgenda(data)
	}

	if result.Agenda.HTML != "" {
		return result.Agenda.HTML
	}

	return result.Agenda.Text
}

// runMeetingCreation creates the calendar event and dispatches the agenda
// email, then completes the workflow and removes the session.
func (c *Conversation) runMeetingCreation(ctx context.Context, snapshot models.WorkflowState) (*InteractionResponse, error) {
	data := snapshot.MeetingData

	event, err := c.calendar.CreateEvent(ctx, calendar.EventRequest{
		Title:          data.Title,
		StartTime:      derefTime(data.StartTime),
		EndTime:        derefTime(data.EndTime),
		Attendees:      data.AttendeeEmails(),
		CreateMeetLink: data.Type == models.MeetingTypeOnline,
		Description:    data.Agenda,
		Location:       data.Location,
	})
	if err != nil {
		return c.failCreation(ctx, snapshot.ConversationID,
			"The calendar event could not be created. You can try approving again.", err)
	}

	data.MeetingLink = event.Event.MeetingLink

	job, err := c.calendar.SendAgenda(ctx, calendar.SendAgendaRequest{
		MeetingID:     data.ID,
		Attendees:     data.Attendees,
		MeetingData:   data,
		AgendaContent: data.Agenda,
	})
	if err != nil {
		return c.failCreation(ctx, snapshot.ConversationID,
			"The event was created but the agenda email could not be sent. You can try approving again.", err)
	}

	unlock := c.locks.Lock(snapshot.ConversationID)
	defer unlock()

	state, err := c.store.Get(ctx, snapshot.ConversationID)
	if err != nil {
		return nil, NewServiceError("runMeetingCreation", CodeWorkflowNotFound,
			"workflow ended while the meeting was being created", err)
	}

	status := models.MeetingStatusCreated

	update := models.MeetingUpdate{Status: &status}
	if event.Event.MeetingLink != "" {
		update.MeetingLink = &event.Event.MeetingLink
	}

	if err := workflow.ApplyUpdate(state, update); err != nil {
		return nil, err
	}

	if _, err := workflow.Advance(state, models.StepCompleted); err != nil {
		return nil, err
	}

	c.publish(ctx, state.ConversationID, events.MeetingCreated{
		BaseEvent:   c.baseEvent(events.MeetingCreatedEvent, state),
		Title:       state.MeetingData.Title,
		MeetingLink: state.MeetingData.MeetingLink,
		Attendees:   len(state.MeetingData.Attendees),
	})
	c.publish(ctx, state.ConversationID, events.AgendaEmailed{
		BaseEvent:      c.baseEvent(events.AgendaEmailedEvent, state),
		JobID:          job.JobID,
		TotalAttendees: len(state.MeetingData.Attendees),
	})
	c.publish(ctx, state.ConversationID, events.WorkflowCompleted{
		BaseEvent: c.baseEvent(events.WorkflowCompletedEvent, state),
		Duration:  time.Since(state.CreatedAt),
	})

	response := c.respond(state, "All done. The meeting is scheduled and the agenda is on its way.", nil, true)

	// Completed workflows leave the store; the conversation is over.
	if err := c.store.Delete(ctx, state.ConversationID); err != nil &&
		!errors.Is(err, session.ErrSessionNotFound) {
		c.logger.WarnContext(ctx, "Failed to remove completed session",
			"conversation_id", state.ConversationID, "error", err)
	}

	return response, nil
}

// failCreation rolls the workflow back to approval so the user keeps a
// retry affordance after an exhausted-retries upstream failure.
func (c *Conversation) failCreation(ctx context.Context, conversationID, message string, cause error) (*InteractionResponse, error) {
	c.logger.ErrorContext(ctx, "Meeting creation failed",
		"conversation_id", conversationID, "error", cause)

	unlock := c.locks.Lock(conversationID)
	defer unlock()

	state, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return nil, NewServiceError("failCreation", CodeWorkflowNotFound,
			"workflow not found", err)
	}

	if _, err := workflow.Advance(state, models.StepApproval); err != nil {
		return nil, err
	}

	if err := c.store.Update(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist conversation: %w", err)
	}

	response := c.respond(state, message, nil, false)
	response.Validation.Errors = append(response.Validation.Errors, models.ValidationResult{
		Field:    "creation",
		IsValid:  false,
		Message:  message,
		Severity: models.SeverityError,
	})
	response.Validation.IsValid = false

	return response, nil
}

// Advance explicitly moves the workflow to a target step (or the next one).
func (c *Conversation) Advance(ctx context.Context, conversationID string, target models.WorkflowStep) (*AdvancementResponse, error) {
	unlock := c.locks.Lock(conversationID)
	defer unlock()

	state, err := c.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, NewServiceError("Advance", CodeWorkflowNotFound, "workflow not found", err)
		}

		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	previousStep := state.CurrentStep

	check, err := workflow.Advance(state, target)
	if err != nil {
		if errors.Is(err, workflow.ErrTransitionBlocked) {
			return &AdvancementResponse{
				Success:        false,
				Message:        "The workflow cannot move there yet",
				ConversationID: conversationID,
				PreviousStep:   previousStep,
				CurrentStep:    state.CurrentStep,
				NextUIBlock:    blocks.Generate(state),
				Validation: AdvancementValidation{
					Errors:          check.Errors,
					Warnings:        state.Warnings,
					CanProceed:      false,
					RequiredActions: check.RequiredActions,
				},
			}, nil
		}

		return nil, err
	}

	if err := c.store.Update(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist conversation: %w", err)
	}

	c.publish(ctx, conversationID, events.StepAdvanced{
		BaseEvent:    c.baseEvent(events.StepAdvancedEvent, state),
		PreviousStep: previousStep,
		CurrentStep:  state.CurrentStep,
		Progress:     state.Progress,
	})

	return &AdvancementResponse{
		Success:        true,
		Message:        fmt.Sprintf("Moved to %s", state.CurrentStep),
		ConversationID: conversationID,
		PreviousStep:   previousStep,
		CurrentStep:    state.CurrentStep,
		NextUIBlock:    blocks.Generate(state),
		Validation: AdvancementValidation{
			Errors:     state.Errors,
			Warnings:   state.Warnings,
			CanProceed: true,
		},
	}, nil
}

// Get returns the current state and block for a conversation.
func (c *Conversation) Get(ctx context.Context, conversationID string) (*InteractionResponse, error) {
	state, err := c.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, NewServiceError("Get", CodeWorkflowNotFound, "workflow not found", err)
		}

		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	return c.respond(state, "", nil, true), nil
}

// Cancel removes the conversation and announces the cancellation.
func (c *Conversation) Cancel(ctx context.Context, conversationID, reason string) error {
	unlock := c.locks.Lock(conversationID)
	defer unlock()

	state, err := c.store.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return NewServiceError("Cancel", CodeWorkflowNotFound, "workflow not found", err)
		}

		return fmt.Errorf("failed to load conversation: %w", err)
	}

	if err := c.store.Delete(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	c.publish(ctx, conversationID, events.WorkflowCancelled{
		BaseEvent: c.baseEvent(events.WorkflowCancelledEvent, state),
		Reason:    reason,
	})

	return nil
}

// EmailJobStatus proxies the agenda email job status for the UI.
func (c *Conversation) EmailJobStatus(ctx context.Context, jobID string) (*calendar.JobStatus, error) {
	if jobID == "" {
		return nil, NewServiceError("EmailJobStatus", CodeInvalidRequest,
			"job ID is required", handlers.ErrMalformedPayload)
	}

	status, err := c.calendar.EmailJobStatus(ctx, jobID)
	if err != nil {
		return nil, NewServiceError("EmailJobStatus", CodeUpstreamUnavailable,
			"email status unavailable", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err))
	}

	return status, nil
}

// HealthCheck reports on the session store.
func (c *Conversation) HealthCheck(ctx context.Context) (string, bool) {
	if err := c.store.HealthCheck(ctx); err != nil {
		return "Session store is unhealthy: " + err.Error(), false
	}

	return "Session store is healthy", true
}

func (c *Conversation) respond(state *models.WorkflowState, message string, result *handlers.Result, success bool) *InteractionResponse {
	var block blocks.Block
	if result != nil && result.Block != nil {
		block = result.Block
	} else {
		block = blocks.Generate(state)
	}

	errs := state.Errors
	warnings := state.Warnings

	if result != nil {
		resultErrs, resultWarnings := models.SplitResults(result.Check.Errors)
		errs = append(resultErrs, errs...)
		warnings = append(resultWarnings, warnings...)
	}

	return &InteractionResponse{
		Success:        success,
		Message:        message,
		ConversationID: state.ConversationID,
		NextUIBlock:    block,
		WorkflowState:  stateSummary(state),
		Validation:     validationSummary(dedupe(errs), dedupe(warnings)),
	}
}

func (c *Conversation) businessRuleResponse(state *models.WorkflowState, message, field string) *InteractionResponse {
	response := c.respond(state, message, nil, false)
	response.Validation.Errors = append(response.Validation.Errors, models.ValidationResult{
		Field:    field,
		IsValid:  false,
		Message:  message,
		Severity: models.SeverityError,
	})
	response.Validation.IsValid = false

	return response
}

func (c *Conversation) baseEvent(eventType events.EventType, state *models.WorkflowState) events.BaseEvent {
	return events.BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		ConversationID: state.ConversationID,
		MeetingID:      state.MeetingData.ID,
	}
}

func (c *Conversation) publish(ctx context.Context, key string, event eventbus.Event) {
	if c.bus == nil {
		return
	}

	if err := c.bus.Publish(ctx, key, event); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish workflow event",
			"event_type", event.GetType(), "error", err)
	}
}

func (c *Conversation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, c.tracer, name, attrs...)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

func dedupe(results []models.ValidationResult) []models.ValidationResult {
	seen := make(map[string]bool, len(results))
	out := make([]models.ValidationResult, 0, len(results))

	for _, result := range results {
		key := result.Field + "|" + result.Message

		if seen[key] {
			continue
		}

		seen[key] = true
		out = append(out, result)
	}

	return out
}
