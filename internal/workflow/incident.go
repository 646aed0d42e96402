package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mbpp-digital/intake/internal/classifier"
)

// newTextIncidentDefinition builds the incident dialogue started from text.
// The opening message is mined for both the description and the location, so
// users who give everything up front skip the location question.
func newTextIncidentDefinition() *Definition {
	return &Definition{
		Type:    TypeTextIncident,
		Initial: StateInitiate,
		States: map[State]StateSpec{
			StateInitiate: {
				Prompt: staticPrompt("Please describe the incident and where it is happening."),
				Handle: func(ctx context.Context, deps Deps, inst *Instance, input Input) (Outcome, error) {
					return handleIncidentDetails(ctx, deps, inst, input, true)
				},
			},
			StateConfirmIncident: {
				Prompt: func(_ context.Context, _ Deps, inst *Instance) Prompt {
					return Prompt{
						Text: fmt.Sprintf("You want to report this incident: %q. Is that right?",
							inst.Field(FieldDescription)),
						QuickReplies: []string{"Yes", "Not an incident (Service Complaint / Feedback)"},
					}
				},
				Handle: handleConfirmIncident,
			},
			StateAskLocation: askLocationState(StateHazardCheck),
			StateHazardCheck: hazardCheckState(),
			StatePreview:     previewState(previewIncident, StateInitiate),
			StateConfirm:     confirmState(),
		},
	}
}

// newImageIncidentDefinition builds the incident dialogue started from an
// uploaded image. The image is confirmed as an incident report before any
// details are collected.
func newImageIncidentDefinition() *Definition {
	return &Definition{
		Type:    TypeImageIncident,
		Initial: StateDetectImage,
		States: map[State]StateSpec{
			StateDetectImage: {
				Prompt: staticPrompt(
					"Image detected. Can you confirm you would like to report an incident?",
					"Yes, report an incident", "Not an incident (Service Complaint / Feedback)"),
				Handle: handleDetectImage,
			},
			StateCollectDetails: {
				Prompt: staticPrompt("Please describe what's happening in the image and where it is."),
				Handle: func(ctx context.Context, deps Deps, inst *Instance, input Input) (Outcome, error) {
					return handleIncidentDetails(ctx, deps, inst, input, false)
				},
			},
			StateAskLocation: askLocationState(StateHazardCheck),
			StateHazardCheck: hazardCheckState(),
			StatePreview:     previewState(previewIncident, StateCollectDetails),
			StateConfirm:     confirmState(),
		},
	}
}

// handleIncidentDetails extracts the description and location from a details
// message and stores them on the instance. confirm routes through the
// incident confirmation question before anything else.
func handleIncidentDetails(ctx context.Context, deps Deps, inst *Instance, input Input, confirm bool) (Outcome, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Outcome{ClarifyPrompt: "Please describe the incident in a few words."}, nil
	}

	ext, err := deps.Classifier.ExtractDescriptionAndLocation(ctx, text)
	if err != nil {
		if !errors.Is(err, classifier.ErrUnavailable) {
			return Outcome{}, err
		}
		ext, _ = deps.Fallback.ExtractDescriptionAndLocation(ctx, text)
	}

	inst.SetField(FieldDescription, ext.Description)
	inst.SetField(FieldFeedback, "Aduan")
	if ext.Location != "" {
		inst.SetField(FieldLocation, ext.Location)
	}

	if inst.Field(FieldEditing) == FieldDescription {
		inst.ClearField(FieldEditing)
		classifyInto(ctx, deps, inst)
		return Outcome{Next: StatePreview}, nil
	}

	if confirm {
		return Outcome{Next: StateConfirmIncident}, nil
	}
	return Outcome{Next: nextAfterDetails(inst)}, nil
}

// nextAfterDetails skips the location question when one was already extracted
func nextAfterDetails(inst *Instance) State {
	if inst.Field(FieldLocation) == "" {
		return StateAskLocation
	}
	return StateHazardCheck
}

func handleConfirmIncident(_ context.Context, _ Deps, inst *Instance, input Input) (Outcome, error) {
	text := normalize(input.Text)
	switch {
	case isNegative(text):
		// the description carries over into the complaint flow
		return Outcome{SwitchType: TypeComplaint, SwitchState: StateVerifyConnectivity}, nil

	case isAffirmative(text):
		return Outcome{Next: nextAfterDetails(inst)}, nil

	default:
		return Outcome{ClarifyPrompt: "Please confirm: is this an incident you want to report?"}, nil
	}
}

func handleDetectImage(_ context.Context, _ Deps, _ *Instance, input Input) (Outcome, error) {
	text := normalize(input.Text)
	switch {
	case isNegative(text):
		// keep the attachment, the complaint flow echoes it back
		return Outcome{SwitchType: TypeComplaint, SwitchState: StateDescribe}, nil

	case isAffirmative(text) || strings.Contains(text, "report"):
		return Outcome{Next: StateCollectDetails}, nil

	default:
		return Outcome{ClarifyPrompt: "Please confirm: would you like to report an incident with this image?"}, nil
	}
}

// hazardCheckState asks whether the incident is blocking access or dangerous.
// The question is generated per incident when the model is reachable.
func hazardCheckState() StateSpec {
	return StateSpec{
		Prompt: func(ctx context.Context, deps Deps, inst *Instance) Prompt {
			question, err := deps.Classifier.GenerateHazardQuestion(ctx, inst.Field(FieldDescription))
			if err != nil {
				question = classifier.DefaultHazardQuestion
			}
			return Prompt{Text: question, QuickReplies: []string{"Yes", "No"}}
		},
		Handle: func(ctx context.Context, deps Deps, inst *Instance, input Input) (Outcome, error) {
			text := normalize(input.Text)
			switch {
			case isAffirmative(text):
				inst.SetField(FieldBlockedRoad, "true")
			case isNegative(text):
				inst.SetField(FieldBlockedRoad, "false")
			default:
				return Outcome{ClarifyPrompt: "Please answer Yes or No."}, nil
			}

			classifyInto(ctx, deps, inst)
			return Outcome{Next: StatePreview}, nil
		},
	}
}
