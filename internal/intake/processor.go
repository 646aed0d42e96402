// Package intake processes conversation turns end to end
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/knowledge"
	"github.com/mbpp-digital/intake/internal/models"
	"github.com/mbpp-digital/intake/internal/router"
	"github.com/mbpp-digital/intake/internal/session"
	"github.com/mbpp-digital/intake/internal/ticket"
	"github.com/mbpp-digital/intake/internal/workflow"
)

const defaultCASRetries = 3

const generalGuidance = "I can help you make a service complaint, report an incident, " +
	"or answer questions about MBPP services. How can I help?"

const cancelledMessage = "No problem, I've cancelled that. How can I help you?"

const submissionRetryMessage = "Sorry, something went wrong while creating your ticket. " +
	"Your details are safe. Please reply Yes to try again."

var guidanceReplies = []string{"Service Complaint / Feedback", "Report an Incident"}

// Processor handles one turn at a time per session. A per-session lock keeps
// local turns serialised; the store's version check protects against other
// instances of the service.
type Processor struct {
	sessions   *session.Store
	engine     *workflow.Engine
	router     *router.Router
	tickets    *ticket.Service
	knowledge  knowledge.Answerer
	logger     *zap.Logger
	locks      *keyedMutex
	casRetries int
}

// NewProcessor creates a turn processor
func NewProcessor(
	sessions *session.Store,
	engine *workflow.Engine,
	rt *router.Router,
	tickets *ticket.Service,
	answerer knowledge.Answerer,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		sessions:   sessions,
		engine:     engine,
		router:     rt,
		tickets:    tickets,
		knowledge:  answerer,
		logger:     logger,
		locks:      newKeyedMutex(),
		casRetries: defaultCASRetries,
	}
}

// ProcessTurn handles one inbound message and returns the reply. The session
// is reloaded and the turn replayed when a concurrent writer wins the version
// check; ticket submission is idempotent so a replay never double-submits.
func (p *Processor) ProcessTurn(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error) {
	unlock := p.locks.Lock(req.SessionID)
	defer unlock()

	input := workflow.Input{Text: req.Text, Attachment: req.Attachment}

	var lastErr error
	for attempt := 0; attempt < p.casRetries; attempt++ {
		sess, err := p.getOrCreate(req.SessionID)
		if err != nil {
			return nil, err
		}
		loadedVersion := sess.Version

		resp, dirty, err := p.handle(ctx, sess, input)
		if err != nil {
			return nil, err
		}

		if !dirty {
			// nothing on the session changed, just keep it alive
			if err := p.sessions.Touch(req.SessionID, time.Now().UTC()); err != nil && !errors.Is(err, session.ErrNotFound) {
				return nil, err
			}
			return resp, nil
		}

		sess.LastActivityAt = time.Now().UTC()
		err = p.sessions.Save(sess, loadedVersion)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, session.ErrConflict) && !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}

		p.logger.Warn("Session changed underneath turn, replaying",
			zap.String("session_id", req.SessionID),
			zap.Int("attempt", attempt+1))
		lastErr = err
	}

	return nil, fmt.Errorf("session %s is too contended: %w", req.SessionID, lastErr)
}

func (p *Processor) getOrCreate(sessionID string) (*models.Session, error) {
	sess, err := p.sessions.Get(sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	// unknown or expired session, start a fresh one
	return p.sessions.Create(sessionID)
}

// handle resolves one turn against the loaded session. dirty reports whether
// the session needs a versioned save; knowledge and chat turns only refresh
// the activity timestamp.
func (p *Processor) handle(ctx context.Context, sess *models.Session, input workflow.Input) (*models.TurnResponse, bool, error) {
	resp := &models.TurnResponse{SessionID: sess.SessionID}

	active := sess.ActiveWorkflow != nil && !sess.ActiveWorkflow.State.IsTerminal()
	decision, err := p.router.Decide(ctx, active, input)
	if err != nil {
		return nil, false, err
	}

	switch decision.Action {
	case router.ActionCancelWorkflow:
		p.logger.Info("Workflow cancelled",
			zap.String("session_id", sess.SessionID),
			zap.String("workflow_id", sess.ActiveWorkflow.ID))
		sess.ActiveWorkflow = nil
		resp.PromptText = cancelledMessage
		resp.QuickReplies = guidanceReplies
		return resp, true, nil

	case router.ActionContinueWorkflow:
		result, err := p.engine.Step(ctx, sess.ActiveWorkflow, input)
		if err != nil {
			return nil, false, err
		}
		resp, err := p.applyStep(ctx, sess, result, resp)
		return resp, true, err

	case router.ActionStartWorkflow:
		inst, result, err := p.engine.Start(ctx, decision.WorkflowType, input)
		if err != nil {
			return nil, false, err
		}
		sess.ActiveWorkflow = inst
		resp.PromptText = result.Prompt
		resp.QuickReplies = result.QuickReplies
		return resp, true, nil

	case router.ActionKnowledgeQuery:
		answer, err := p.knowledge.Answer(ctx, input.Text)
		if err != nil {
			return nil, false, err
		}
		resp.PromptText = answer
		return resp, false, nil

	default:
		resp.PromptText = generalGuidance
		resp.QuickReplies = guidanceReplies
		return resp, false, nil
	}
}

// applyStep resolves an engine result, running ticket submission when asked
func (p *Processor) applyStep(ctx context.Context, sess *models.Session, result workflow.StepResult, resp *models.TurnResponse) (*models.TurnResponse, error) {
	inst := sess.ActiveWorkflow

	if result.Abandoned {
		sess.ActiveWorkflow = nil
		resp.PromptText = result.Prompt
		return resp, nil
	}

	if !result.Submit {
		resp.PromptText = result.Prompt
		resp.QuickReplies = result.QuickReplies
		return resp, nil
	}

	tkt, err := p.tickets.Submit(ctx, inst)
	if err != nil {
		if errors.Is(err, ticket.ErrRetryable) {
			p.engine.RetrySubmission(inst)
			resp.PromptText = submissionRetryMessage
			resp.QuickReplies = []string{"Yes", "No"}
			return resp, nil
		}
		return nil, err
	}

	p.engine.CompleteSubmission(inst)
	sess.ActiveWorkflow = nil

	resp.TicketNumber = tkt.TicketNumber
	resp.AttachmentEchoURL = tkt.ImageURL
	resp.PromptText = fmt.Sprintf(
		"Thank you! Your ticket has been created.\nTicket number: %s\n"+
			"MBPP will follow up on your report. Is there anything else I can help with?",
		tkt.TicketNumber)
	return resp, nil
}
