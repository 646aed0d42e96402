// Package router decides what an inbound turn means before any workflow runs
package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/classifier"
	"github.com/mbpp-digital/intake/internal/workflow"
)

// Action is what the turn processor should do with a message
type Action string

const (
	// ActionContinueWorkflow feeds the message into the active workflow
	ActionContinueWorkflow Action = "continue_workflow"

	// ActionCancelWorkflow abandons the active workflow
	ActionCancelWorkflow Action = "cancel_workflow"

	// ActionStartWorkflow starts the workflow named in the decision
	ActionStartWorkflow Action = "start_workflow"

	// ActionKnowledgeQuery answers from the knowledge base
	ActionKnowledgeQuery Action = "knowledge_query"

	// ActionGeneralChat replies with general guidance
	ActionGeneralChat Action = "general_chat"
)

// Decision is the routing result for one turn
type Decision struct {
	Action       Action
	WorkflowType workflow.Type
}

// cancel phrases match the whole message, not substrings, so a description
// like "the light won't stop flickering" is never treated as a cancellation
var cancelPhrases = map[string]bool{
	"cancel":     true,
	"start over": true,
	"restart":    true,
	"stop":       true,
}

var questionOpeners = []string{
	"what", "when", "where", "who", "why", "how", "which",
	"is ", "are ", "can ", "do ", "does ", "apa", "bila", "macam mana", "berapa",
}

// Router resolves messages into decisions in fixed precedence order:
// cancellation, active-workflow continuation, image upload, complaint
// keywords, incident keywords, knowledge question, general chat.
type Router struct {
	classifier classifier.Classifier
	logger     *zap.Logger
}

// New creates a router
func New(cls classifier.Classifier, logger *zap.Logger) *Router {
	return &Router{
		classifier: cls,
		logger:     logger,
	}
}

// Decide routes one turn. hasActiveWorkflow is whether the session currently
// holds a non-terminal workflow instance.
func (r *Router) Decide(ctx context.Context, hasActiveWorkflow bool, input workflow.Input) (Decision, error) {
	text := strings.ToLower(strings.TrimSpace(input.Text))

	if hasActiveWorkflow {
		if cancelPhrases[text] {
			return Decision{Action: ActionCancelWorkflow}, nil
		}
		return Decision{Action: ActionContinueWorkflow}, nil
	}

	if input.HasAttachment() {
		return Decision{Action: ActionStartWorkflow, WorkflowType: workflow.TypeImageIncident}, nil
	}

	intents, err := r.classifier.DetectIntentKeywords(ctx, input.Text)
	if err != nil {
		// intent detection is keyword driven and should not fail; route to
		// general chat rather than failing the turn
		r.logger.Warn("Intent detection failed", zap.Error(err))
		return Decision{Action: ActionGeneralChat}, nil
	}

	if intents.IsComplaint {
		return Decision{Action: ActionStartWorkflow, WorkflowType: workflow.TypeComplaint}, nil
	}
	if intents.IsIncident {
		return Decision{Action: ActionStartWorkflow, WorkflowType: workflow.TypeTextIncident}, nil
	}

	if looksLikeQuestion(text) {
		return Decision{Action: ActionKnowledgeQuery}, nil
	}

	return Decision{Action: ActionGeneralChat}, nil
}

func looksLikeQuestion(text string) bool {
	if strings.HasSuffix(text, "?") {
		return true
	}
	for _, opener := range questionOpeners {
		if strings.HasPrefix(text, opener) {
			return true
		}
	}
	return false
}
