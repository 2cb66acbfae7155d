// Package session stores per-conversation workflow state. A conversation is
// one user's in-progress meeting-creation interaction; its state lives in
// the store from the moment scheduling intent is detected until completion,
// cancellation, or TTL expiry.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/parley-hq/parley/pkg/models"
)

// DefaultTTL is how long an abandoned conversation survives without
// activity before the store may evict it.
const DefaultTTL = 24 * time.Hour

var (
	// ErrSessionNotFound is returned when the conversation is unknown to
	// the store. Callers surface it as a distinct user-facing error rather
	// than silently creating a new session.
	ErrSessionNotFound = errors.New("workflow session not found")

	// ErrSessionExists is returned when creating a conversation that is
	// already stored.
	ErrSessionExists = errors.New("workflow session already exists")
)

// Store is the keyed conversation-state store. Update fully replaces the
// stored state after a handler runs and refreshes the TTL.
type Store interface {
	Create(ctx context.Context, state *models.WorkflowState) error
	Get(ctx context.Context, conversationID string) (*models.WorkflowState, error)
	Update(ctx context.Context, state *models.WorkflowState) error
	Delete(ctx context.Context, conversationID string) error
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
