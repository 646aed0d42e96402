package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/models"
	"github.com/mbpp-digital/intake/internal/storage"
	"github.com/mbpp-digital/intake/internal/workflow"
	"github.com/mbpp-digital/intake/pkg/database"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 200 * time.Millisecond

	// daily sequences start here, matching the numbering of the manual
	// intake counter they replaced
	sequenceStart = 20001
)

// Service turns a finished workflow instance into a ticket. Submission is
// idempotent on the workflow ID: submitting the same instance twice returns
// the first ticket instead of creating another.
type Service struct {
	db          *database.DB
	store       *Store
	blobs       storage.BlobStore
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// NewService creates a submission service
func NewService(db *database.DB, store *Store, blobs storage.BlobStore, logger *zap.Logger) *Service {
	return &Service{
		db:          db,
		store:       store,
		blobs:       blobs,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		now:         time.Now,
	}
}

// Submit creates the ticket for the instance, retrying transient failures
// with backoff. The returned error wraps ErrRetryable when every attempt
// failed for a transient reason, so the dialogue can offer to try again.
func (s *Service) Submit(ctx context.Context, inst *workflow.Instance) (*models.Ticket, error) {
	if existing, err := s.store.GetByWorkflowID(inst.ID); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Info("Duplicate submission, returning existing ticket",
			zap.String("workflow_id", inst.ID),
			zap.String("ticket_number", existing.TicketNumber))
		return existing, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff * time.Duration(1<<(attempt-2))):
			}
		}

		ticket, err := s.submitOnce(ctx, inst)
		if err == nil {
			s.logger.Info("Ticket created",
				zap.String("ticket_number", ticket.TicketNumber),
				zap.String("workflow_id", inst.ID),
				zap.String("category", ticket.Category))
			return ticket, nil
		}
		if !errors.Is(err, ErrRetryable) {
			return nil, err
		}

		s.logger.Warn("Ticket submission attempt failed",
			zap.String("workflow_id", inst.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		lastErr = err
	}

	return nil, lastErr
}

// submitOnce runs one submission attempt in a single transaction. The counter
// increment, attachment upload and ticket insert commit or roll back together,
// so a failed attempt never burns a sequence number.
func (s *Service) submitOnce(ctx context.Context, inst *workflow.Instance) (*models.Ticket, error) {
	var ticket *models.Ticket

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		existing, err := getByWorkflowIDTx(tx, inst.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			ticket = existing
			return nil
		}

		now := s.now().UTC()
		day := now.Format("2006/01/02")

		var seq int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO ticket_counters (day, value) VALUES (?, ?)
			 ON CONFLICT(day) DO UPDATE SET value = value + 1
			 RETURNING value`,
			day, sequenceStart,
		).Scan(&seq)
		if err != nil {
			return fmt.Errorf("%w: counter increment: %v", ErrRetryable, err)
		}

		number := fmt.Sprintf("%d/%s", seq, day)

		imageURL := ""
		if len(inst.Attachment) > 0 {
			imageURL, err = s.blobs.PutImage(ctx, inst.Attachment, number)
			if err != nil {
				return fmt.Errorf("%w: attachment upload: %v", ErrRetryable, err)
			}
		}

		ticket = buildTicket(inst, number, imageURL, now)
		if err := insertTicketTx(tx, ticket); err != nil {
			return fmt.Errorf("%w: %v", ErrRetryable, err)
		}
		return nil
	})
	if err != nil {
		// a concurrent submitter may have won the insert on workflow_id
		if existing, getErr := s.store.GetByWorkflowID(inst.ID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	return ticket, nil
}

func buildTicket(inst *workflow.Instance, number, imageURL string, now time.Time) *models.Ticket {
	category := inst.Field(workflow.FieldCategory)
	subCategory := inst.Field(workflow.FieldSubCategory)

	subject := category
	if subCategory != "" && subCategory != "--" {
		subject = category + " - " + subCategory
	}
	if subject == "" {
		subject = "Aduan"
	}

	feedback := inst.Field(workflow.FieldFeedback)
	if feedback == "" {
		feedback = "Aduan"
	}

	return &models.Ticket{
		TicketNumber: number,
		WorkflowID:   inst.ID,
		WorkflowType: string(inst.Type),
		Subject:      subject,
		Details:      inst.Field(workflow.FieldDescription),
		Location:     inst.Field(workflow.FieldLocation),
		Feedback:     feedback,
		Category:     category,
		SubCategory:  subCategory,
		BlockedRoad:  inst.Field(workflow.FieldBlockedRoad) == "true",
		ImageURL:     imageURL,
		Status:       "open",
		CreatedAt:    now,
	}
}
