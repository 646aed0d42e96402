// Package ticket creates and reads the tickets produced by intake dialogues
package ticket

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/models"
	"github.com/mbpp-digital/intake/pkg/database"
)

var (
	// ErrNotFound is returned when no ticket matches
	ErrNotFound = errors.New("ticket not found")

	// ErrRetryable marks a submission failure that is safe to retry
	ErrRetryable = errors.New("retryable submission failure")
)

const ticketColumns = `ticket_number, workflow_id, workflow_type, subject, details,
	location, feedback, category, sub_category, blocked_road, image_url, status, created_at`

// Store reads and writes ticket rows
type Store struct {
	db     *database.DB
	logger *zap.Logger
}

// NewStore creates a ticket store
func NewStore(db *database.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// GetByWorkflowID returns the ticket created for a workflow instance, or nil
// when none exists yet
func (s *Store) GetByWorkflowID(workflowID string) (*models.Ticket, error) {
	row := s.db.QueryRow(
		`SELECT `+ticketColumns+` FROM tickets WHERE workflow_id = ?`, workflowID)

	ticket, err := scanTicket(row.Scan)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return ticket, err
}

// GetByNumber returns a ticket by its public number
func (s *Store) GetByNumber(number string) (*models.Ticket, error) {
	row := s.db.QueryRow(
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_number = ?`, number)
	return scanTicket(row.Scan)
}

// getByWorkflowIDTx is the in-transaction variant of GetByWorkflowID
func getByWorkflowIDTx(tx *sql.Tx, workflowID string) (*models.Ticket, error) {
	row := tx.QueryRow(
		`SELECT `+ticketColumns+` FROM tickets WHERE workflow_id = ?`, workflowID)

	ticket, err := scanTicket(row.Scan)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return ticket, err
}

func insertTicketTx(tx *sql.Tx, t *models.Ticket) error {
	_, err := tx.Exec(
		`INSERT INTO tickets (`+ticketColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TicketNumber, t.WorkflowID, t.WorkflowType, t.Subject, t.Details,
		t.Location, t.Feedback, t.Category, t.SubCategory, t.BlockedRoad,
		t.ImageURL, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func scanTicket(scan func(dest ...interface{}) error) (*models.Ticket, error) {
	var t models.Ticket
	err := scan(
		&t.TicketNumber, &t.WorkflowID, &t.WorkflowType, &t.Subject, &t.Details,
		&t.Location, &t.Feedback, &t.Category, &t.SubCategory, &t.BlockedRoad,
		&t.ImageURL, &t.Status, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return &t, nil
}
