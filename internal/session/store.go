// Package session persists conversations with optimistic concurrency
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/models"
	"github.com/mbpp-digital/intake/internal/workflow"
	"github.com/mbpp-digital/intake/pkg/database"
)

var (
	// ErrNotFound is returned when the session does not exist
	ErrNotFound = errors.New("session not found")

	// ErrConflict is returned when a concurrent writer got there first
	ErrConflict = errors.New("session version conflict")
)

// Store persists sessions in SQLite. Writes go through a compare-and-swap on
// the version column so concurrent turns on the same session cannot clobber
// each other.
type Store struct {
	db     *database.DB
	logger *zap.Logger
}

// NewStore creates a session store
func NewStore(db *database.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new session with the given ID
func (s *Store) Create(sessionID string) (*models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		SessionID:      sessionID,
		CreatedAt:      now,
		LastActivityAt: now,
		Version:        0,
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, created_at, last_activity_at, version, workflow)
		 VALUES (?, ?, ?, ?, NULL)`,
		sess.SessionID, sess.CreatedAt, sess.LastActivityAt, sess.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Debug("Session created", zap.String("session_id", sessionID))
	return sess, nil
}

// Get loads a session by ID
func (s *Store) Get(sessionID string) (*models.Session, error) {
	row := s.db.QueryRow(
		`SELECT session_id, created_at, last_activity_at, version, workflow
		 FROM sessions WHERE session_id = ?`,
		sessionID,
	)
	return scanSession(row)
}

// Save writes the session back, expecting the version it was loaded at. The
// stored version is bumped on success; ErrConflict means a concurrent writer
// updated the session and the caller should reload and retry.
func (s *Store) Save(sess *models.Session, expectedVersion int64) error {
	workflowJSON, err := marshalWorkflow(sess.ActiveWorkflow)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`UPDATE sessions
		 SET last_activity_at = ?, workflow = ?, version = version + 1
		 WHERE session_id = ? AND version = ?`,
		sess.LastActivityAt, workflowJSON, sess.SessionID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// either the session is gone or someone else committed first
		if _, getErr := s.Get(sess.SessionID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}

	sess.Version = expectedVersion + 1
	return nil
}

// Touch refreshes last_activity_at without changing the workflow. It does not
// participate in the version protocol since it never loses data.
func (s *Store) Touch(sessionID string, at time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET last_activity_at = ? WHERE session_id = ?`,
		at.UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepExpired deletes sessions idle longer than the timeout and returns how
// many were removed
func (s *Store) SweepExpired(now time.Time, idleTimeout time.Duration) (int64, error) {
	cutoff := now.UTC().Add(-idleTimeout)

	res, err := s.db.Exec(`DELETE FROM sessions WHERE last_activity_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("Expired sessions removed", zap.Int64("count", removed))
	}
	return removed, nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var sess models.Session
	var workflowJSON sql.NullString

	err := row.Scan(&sess.SessionID, &sess.CreatedAt, &sess.LastActivityAt, &sess.Version, &workflowJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if workflowJSON.Valid && workflowJSON.String != "" {
		var inst workflow.Instance
		if err := json.Unmarshal([]byte(workflowJSON.String), &inst); err != nil {
			return nil, fmt.Errorf("failed to decode workflow: %w", err)
		}
		if !inst.State.IsValid() {
			return nil, fmt.Errorf("failed to decode workflow: unknown state %q", inst.State)
		}
		sess.ActiveWorkflow = &inst
	}

	return &sess, nil
}

func marshalWorkflow(inst *workflow.Instance) (interface{}, error) {
	if inst == nil {
		return nil, nil
	}
	data, err := json.Marshal(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}
	return string(data), nil
}
