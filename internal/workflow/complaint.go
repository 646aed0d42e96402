package workflow

import (
	"context"
	"fmt"
	"strings"
)

// newComplaintDefinition builds the service complaint dialogue. It opens with
// a triage question so a user who actually wants to report an incident is
// handed over to the right flow.
func newComplaintDefinition() *Definition {
	return &Definition{
		Type:    TypeComplaint,
		Initial: StateTriage,
		States: map[State]StateSpec{
			StateTriage: {
				Prompt: staticPrompt(
					"Welcome to MBPP's service desk. Would you like to make a service complaint or report an incident?",
					"Service Complaint / Feedback", "Report an Incident"),
				Handle: handleTriage,
			},
			StateDescribe: {
				Prompt: staticPrompt("Please describe the issue you're facing."),
				Handle: handleDescribe,
			},
			StateVerifyConnectivity: {
				Prompt: staticPrompt(
					"Before I raise a ticket, could you check your internet connection and try the service again?",
					"Yes, still not working", "It works now"),
				Handle: handleVerifyConnectivity,
			},
			StateAskLocation: askLocationState(StatePreview),
			StatePreview:     previewState(previewComplaint, StateDescribe),
			StateConfirm:     confirmState(),
		},
	}
}

func handleTriage(_ context.Context, _ Deps, inst *Instance, input Input) (Outcome, error) {
	text := normalize(input.Text)
	switch {
	// "Not an incident (Service Complaint)" must land on the complaint
	// branch despite mentioning the word incident
	case isNegative(text), containsAny(text, "complaint", "feedback"):
		return Outcome{Next: StateDescribe}, nil

	case containsAny(text, "incident", "report"):
		if len(inst.Attachment) > 0 {
			return Outcome{SwitchType: TypeImageIncident, SwitchState: StateCollectDetails}, nil
		}
		return Outcome{SwitchType: TypeTextIncident, SwitchState: StateInitiate}, nil

	case containsAny(text, "service"):
		return Outcome{Next: StateDescribe}, nil

	default:
		return Outcome{ClarifyPrompt: "Please choose one of the options below."}, nil
	}
}

func handleDescribe(ctx context.Context, deps Deps, inst *Instance, input Input) (Outcome, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Outcome{ClarifyPrompt: "Please type a short description of the issue."}, nil
	}

	inst.SetField(FieldDescription, text)
	inst.SetField(FieldFeedback, "Aduan")

	if inst.Field(FieldEditing) == FieldDescription {
		inst.ClearField(FieldEditing)
		classifyInto(ctx, deps, inst)
		return Outcome{Next: StatePreview}, nil
	}
	return Outcome{Next: StateVerifyConnectivity}, nil
}

func handleVerifyConnectivity(ctx context.Context, deps Deps, inst *Instance, input Input) (Outcome, error) {
	text := normalize(input.Text)
	switch {
	case containsAny(text, "works now", "it works", "resolved", "fixed", "sorted"):
		return Outcome{
			Abandon:        true,
			PromptOverride: "Glad to hear it's working now! Feel free to reach out again if anything else comes up.",
		}, nil

	case isAffirmative(text) || containsAny(text, "still", "not working"):
		inst.SetField(FieldFeedback, "Aduan")
		classifyInto(ctx, deps, inst)
		return Outcome{Next: StatePreview}, nil

	default:
		return Outcome{ClarifyPrompt: "Is the service still not working, or does it work now?"}, nil
	}
}

func previewComplaint(inst *Instance) string {
	return fmt.Sprintf(`Here's a summary of your complaint:

Description: %s
Category: %s / %s
Feedback type: %s

Shall I submit this ticket?`,
		inst.Field(FieldDescription),
		inst.Field(FieldCategory),
		orDash(inst.Field(FieldSubCategory)),
		orDash(inst.Field(FieldFeedback)))
}
