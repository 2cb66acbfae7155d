package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	_ "github.com/lib/pq"

	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/session/sqlbase"
)

func sessionMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflow_sessions (
				conversation_id TEXT PRIMARY KEY,
				state           JSONB NOT NULL,
				created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				expires_at      TIMESTAMP WITH TIME ZONE NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_workflow_sessions_expires_at
				ON workflow_sessions (expires_at);
		`,
	}
}

// PostgresStore keeps sessions durable across restarts. Expiry uses an
// expires_at column refreshed on every update plus a cron sweep.
type PostgresStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	cron   *cron.Cron
}

// NewPostgresStore connects, runs migrations, and starts the expiry sweep.
func NewPostgresStore(ctx context.Context, logger *slog.Logger, databaseURL string, ttl time.Duration) (*PostgresStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	store := &PostgresStore{
		db:     database,
		ttl:    ttl,
		logger: logger.With("module", "postgres_session_store"),
		cron:   cron.New(),
	}

	migrationManager := sqlbase.NewMigrationManager(store.logger, database, sessionMigrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run session migrations: %w", err)
	}

	_, _ = store.cron.AddFunc(sweepSchedule, store.sweep)
	store.cron.Start()

	return store, nil
}

func (s *PostgresStore) Create(ctx context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_sessions (conversation_id, state, expires_at)
		VALUES ($1, $2, NOW() + $3 * INTERVAL '1 second')
		ON CONFLICT (conversation_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, state.ConversationID, data, int(s.ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if inserted == 0 {
		return ErrSessionExists
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, conversationID string) (*models.WorkflowState, error) {
	query := `
		SELECT state FROM workflow_sessions
		WHERE conversation_id = $1 AND expires_at > NOW()
	`

	var data []byte

	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state models.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", conversationID, err)
	}

	return &state, nil
}

func (s *PostgresStore) Update(ctx context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_sessions
		SET state = $2,
			updated_at = NOW(),
			expires_at = NOW() + $3 * INTERVAL '1 second'
		WHERE conversation_id = $1 AND expires_at > NOW()
	`

	result, err := s.db.ExecContext(ctx, query, state.ConversationID, data, int(s.ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if updated == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, conversationID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM workflow_sessions WHERE conversation_id = $1", conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if removed == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close(_ context.Context) error {
	s.cron.Stop()

	return s.db.Close()
}

func (s *PostgresStore) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := s.db.ExecContext(ctx, "DELETE FROM workflow_sessions WHERE expires_at <= NOW()")
	if err != nil {
		s.logger.Error("Failed to sweep expired sessions", "error", err)

		return
	}

	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		s.logger.Info("Expired abandoned sessions", "count", removed)
	}
}
