package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mbpp-digital/intake/internal/classifier"
	"go.uber.org/zap"
)

const defaultMaxClarifications = 3

// abandonMessage ends a dialogue that could not converge
const abandonMessage = "I'm sorry, I wasn't able to understand your responses. " +
	"Please start again when you're ready, or contact MBPP directly at 04-2637637."

// StepResult is what the engine tells the caller after one turn
type StepResult struct {
	Prompt       string
	QuickReplies []string

	// Submit asks the caller to run ticket submission for the instance
	Submit bool

	// Abandoned means the workflow ended without a ticket
	Abandoned bool
}

// Engine drives workflow instances through their dialogue definitions
type Engine struct {
	defs              map[Type]*Definition
	deps              Deps
	maxClarifications int
}

// NewEngine creates an engine with the three intake definitions registered
func NewEngine(cls classifier.Classifier, logger *zap.Logger, maxClarifications int) *Engine {
	if maxClarifications <= 0 {
		maxClarifications = defaultMaxClarifications
	}

	e := &Engine{
		defs: make(map[Type]*Definition),
		deps: Deps{
			Classifier: cls,
			Fallback:   classifier.NewRules(),
			Logger:     logger,
		},
		maxClarifications: maxClarifications,
	}

	e.register(newComplaintDefinition())
	e.register(newTextIncidentDefinition())
	e.register(newImageIncidentDefinition())
	return e
}

func (e *Engine) register(def *Definition) {
	e.defs[def.Type] = def
}

// Start creates an instance of the given type and returns its opening prompt.
// An attachment on the input is kept on the instance.
func (e *Engine) Start(ctx context.Context, t Type, input Input) (*Instance, StepResult, error) {
	def, ok := e.defs[t]
	if !ok {
		return nil, StepResult{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}

	inst := NewInstance(t, def.Initial)
	if input.HasAttachment() {
		inst.Attachment = input.Attachment
	}

	result, err := e.promptFor(ctx, inst)
	if err != nil {
		return nil, StepResult{}, err
	}

	e.deps.Logger.Info("Workflow started",
		zap.String("workflow_id", inst.ID),
		zap.String("type", string(t)),
		zap.String("state", string(inst.State)))

	return inst, result, nil
}

// Step feeds one user turn into the instance and advances its state
func (e *Engine) Step(ctx context.Context, inst *Instance, input Input) (StepResult, error) {
	if inst.State.IsTerminal() {
		return StepResult{}, fmt.Errorf("%w: %s", ErrTerminal, inst.State)
	}

	def, ok := e.defs[inst.Type]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %s", ErrUnknownType, inst.Type)
	}

	spec, ok := def.States[inst.State]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %s/%s", ErrUnknownState, inst.Type, inst.State)
	}

	if input.HasAttachment() && len(inst.Attachment) == 0 {
		inst.Attachment = input.Attachment
	}

	out, err := spec.Handle(ctx, e.deps, inst, input)
	if err != nil {
		return StepResult{}, err
	}

	inst.UpdatedAt = time.Now().UTC()

	switch {
	case out.Abandon:
		inst.State = StateComplete
		return StepResult{Prompt: out.PromptOverride, Abandoned: true}, nil

	case out.ClarifyPrompt != "":
		inst.RetryCount++
		if inst.RetryCount >= e.maxClarifications {
			e.deps.Logger.Info("Workflow abandoned after repeated clarifications",
				zap.String("workflow_id", inst.ID),
				zap.String("state", string(inst.State)))
			inst.State = StateFailed
			return StepResult{Prompt: abandonMessage, Abandoned: true}, nil
		}
		prompt := spec.Prompt(ctx, e.deps, inst)
		return StepResult{Prompt: out.ClarifyPrompt, QuickReplies: prompt.QuickReplies}, nil

	case out.SwitchType != "":
		target, ok := e.defs[out.SwitchType]
		if !ok {
			return StepResult{}, fmt.Errorf("%w: %s", ErrUnknownType, out.SwitchType)
		}
		if _, ok := target.States[out.SwitchState]; !ok {
			return StepResult{}, fmt.Errorf("%w: %s/%s", ErrUnknownState, out.SwitchType, out.SwitchState)
		}

		e.deps.Logger.Info("Workflow switched",
			zap.String("workflow_id", inst.ID),
			zap.String("from", string(inst.Type)),
			zap.String("to", string(out.SwitchType)),
			zap.String("state", string(out.SwitchState)))

		inst.Type = out.SwitchType
		inst.State = out.SwitchState
		inst.RetryCount = 0
		return e.promptFor(ctx, inst)

	case out.Submit:
		inst.State = out.Next
		inst.RetryCount = 0
		inst.SubmissionStatus = SubmissionPending
		return StepResult{Submit: true}, nil

	default:
		inst.State = out.Next
		inst.RetryCount = 0
		if out.PromptOverride != "" {
			prompt := Prompt{}
			if next, ok := def.States[out.Next]; ok && next.Prompt != nil {
				prompt = next.Prompt(ctx, e.deps, inst)
			}
			return StepResult{Prompt: out.PromptOverride, QuickReplies: prompt.QuickReplies}, nil
		}
		return e.promptFor(ctx, inst)
	}
}

// PromptFor re-renders the prompt of the instance's current state
func (e *Engine) PromptFor(ctx context.Context, inst *Instance) (StepResult, error) {
	return e.promptFor(ctx, inst)
}

// CompleteSubmission marks the instance submitted and terminal
func (e *Engine) CompleteSubmission(inst *Instance) {
	inst.SubmissionStatus = SubmissionSubmitted
	inst.State = StateComplete
	inst.UpdatedAt = time.Now().UTC()
}

// RetrySubmission returns the instance to the preview after a failed
// submission so the user can confirm again
func (e *Engine) RetrySubmission(inst *Instance) {
	inst.SubmissionStatus = SubmissionNone
	inst.State = StatePreview
	inst.UpdatedAt = time.Now().UTC()
}

func (e *Engine) promptFor(ctx context.Context, inst *Instance) (StepResult, error) {
	def, ok := e.defs[inst.Type]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %s", ErrUnknownType, inst.Type)
	}

	spec, ok := def.States[inst.State]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %s/%s", ErrUnknownState, inst.Type, inst.State)
	}
	if spec.Prompt == nil {
		return StepResult{}, fmt.Errorf("%w: state %s/%s has no prompt", ErrUnknownState, inst.Type, inst.State)
	}

	prompt := spec.Prompt(ctx, e.deps, inst)
	return StepResult{Prompt: prompt.Text, QuickReplies: prompt.QuickReplies}, nil
}
