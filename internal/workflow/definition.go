package workflow

import (
	"context"

	"github.com/mbpp-digital/intake/internal/classifier"
	"go.uber.org/zap"
)

// Deps are the collaborators available to state handlers
type Deps struct {
	Classifier classifier.Classifier
	Fallback   classifier.Classifier
	Logger     *zap.Logger
}

// Prompt is what a state asks the user
type Prompt struct {
	Text         string
	QuickReplies []string
}

// Outcome is the result of handling one turn in a state. Exactly one of the
// progression fields applies: Next advances within the definition, SwitchType
// hands the dialogue to another definition, ClarifyPrompt re-asks without
// advancing, and Abandon ends the workflow without a ticket.
type Outcome struct {
	Next           State
	ClarifyPrompt  string
	PromptOverride string
	SwitchType     Type
	SwitchState    State
	Submit         bool
	Abandon        bool
}

// StateSpec declares one dialogue state
type StateSpec struct {
	Prompt func(ctx context.Context, deps Deps, inst *Instance) Prompt
	Handle func(ctx context.Context, deps Deps, inst *Instance, input Input) (Outcome, error)
}

// Definition is a complete dialogue graph for one workflow type
type Definition struct {
	Type    Type
	Initial State
	States  map[State]StateSpec
}

func staticPrompt(text string, quickReplies ...string) func(context.Context, Deps, *Instance) Prompt {
	return func(context.Context, Deps, *Instance) Prompt {
		return Prompt{Text: text, QuickReplies: quickReplies}
	}
}
