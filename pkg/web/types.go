package web

import (
	"encoding/json"

	"github.com/parley-hq/parley/pkg/blocks"
	"github.com/parley-hq/parley/pkg/handlers"
	"github.com/parley-hq/parley/pkg/models"
)

// ChatMessageRequest is a free-text message from the chat frontend.
type ChatMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Message        string `json:"message"         validate:"required"`
}

// InteractionRequest is a UI block interaction from the chat frontend.
type InteractionRequest struct {
	ConversationID string          `json:"conversation_id" validate:"required"`
	BlockType      blocks.Type     `json:"block_type"      validate:"required"`
	Action         handlers.Action `json:"action"          validate:"required"`
	Data           json.RawMessage `json:"data"`
}

func (r InteractionRequest) toHandlerRequest() handlers.Request {
	return handlers.Request{
		ConversationID: r.ConversationID,
		BlockType:      r.BlockType,
		Action:         r.Action,
		Data:           r.Data,
	}
}

// AdvanceRequest explicitly moves a workflow forward or backward. An empty
// target step means the next step in order.
type AdvanceRequest struct {
	TargetStep models.WorkflowStep `json:"target_step"`
}

// CancelRequest optionally carries the reason a workflow was abandoned.
type CancelRequest struct {
	Reason string `json:"reason"`
}
