// Package web provides the HTTP endpoints the chat frontend talks to.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/parley-hq/parley/pkg/services"
)

type APIHandlers struct {
	conversations *services.Conversation
	validator     *validator.Validate
}

func NewAPIHandlers(conversations *services.Conversation, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		conversations: conversations,
		validator:     validator,
	}
}

// PostMessage receives a free-text chat message. A scheduling intent starts
// a workflow and answers with its first UI block.
func (h *APIHandlers) PostMessage(c fiber.Ctx) error {
	var req ChatMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	response, err := h.conversations.HandleMessage(c.Context(), req.ConversationID, req.Message)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

// PostInteraction applies a UI block interaction to the conversation's
// workflow. Validation failures come back in the response body with
// success=false; only malformed payloads get an error status.
func (h *APIHandlers) PostInteraction(c fiber.Ctx) error {
	var req InteractionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	response, err := h.conversations.HandleInteraction(c.Context(), req.toHandlerRequest())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

// GetConversation returns the conversation's current state and UI block.
func (h *APIHandlers) GetConversation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Conversation ID is required")
	}

	response, err := h.conversations.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

// DeleteConversation cancels an in-flight workflow.
func (h *APIHandlers) DeleteConversation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Conversation ID is required")
	}

	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.conversations.Cancel(c.Context(), id, req.Reason); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AdvanceWorkflow explicitly moves the workflow to a target step.
func (h *APIHandlers) AdvanceWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Conversation ID is required")
	}

	var req AdvanceRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if req.TargetStep != "" && !req.TargetStep.Valid() {
		return badRequest(c, "Unknown target step: "+string(req.TargetStep))
	}

	response, err := h.conversations.Advance(c.Context(), id, req.TargetStep)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

// EmailJobStatus reports the progress of an async agenda email job.
func (h *APIHandlers) EmailJobStatus(c fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return badRequest(c, "Job ID is required")
	}

	status, err := h.conversations.EmailJobStatus(c.Context(), jobID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeCheck, storeOK := h.conversations.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Parley API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if storeOK {
		status = "healthy"
		message = "Parley API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"session_store": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
