package workflow

import (
	"context"
	"fmt"
	"strings"
)

// Quick replies shared across definitions
var previewReplies = []string{"Yes", "Edit description", "Edit location", "No"}

// classifyInto classifies the collected description and stores the category
// on the instance. Classification degrades to the keyword tables when the
// model is unreachable, so it never fails the turn.
func classifyInto(ctx context.Context, deps Deps, inst *Instance) {
	description := inst.Field(FieldDescription)

	cat, err := deps.Classifier.ClassifyCategory(ctx, description)
	if err != nil {
		cat, _ = deps.Fallback.ClassifyCategory(ctx, description)
	}

	inst.SetField(FieldCategory, cat.Category)
	inst.SetField(FieldSubCategory, cat.SubCategory)
}

// previewState shows the collected fields and handles the confirm/edit loop.
// resetTo is the state that recollects the description for this definition.
func previewState(render func(*Instance) string, resetTo State) StateSpec {
	return StateSpec{
		Prompt: func(_ context.Context, _ Deps, inst *Instance) Prompt {
			return Prompt{Text: render(inst), QuickReplies: previewReplies}
		},
		Handle: func(_ context.Context, _ Deps, inst *Instance, input Input) (Outcome, error) {
			text := normalize(input.Text)
			switch {
			case strings.Contains(text, "edit") && strings.Contains(text, "desc"):
				inst.SetField(FieldEditing, FieldDescription)
				return Outcome{Next: resetTo, PromptOverride: "Sure, please type the new description."}, nil

			case strings.Contains(text, "edit") && strings.Contains(text, "loc"):
				inst.SetField(FieldEditing, FieldLocation)
				return Outcome{Next: StateAskLocation, PromptOverride: "Sure, please type the new location."}, nil

			case isAffirmative(text):
				return Outcome{Next: StateConfirm, Submit: true}, nil

			case isNegative(text):
				inst.ClearField(FieldDescription)
				inst.ClearField(FieldLocation)
				inst.ClearField(FieldCategory)
				inst.ClearField(FieldSubCategory)
				inst.ClearField(FieldBlockedRoad)
				inst.ClearField(FieldEditing)
				return Outcome{Next: resetTo}, nil

			default:
				return Outcome{ClarifyPrompt: "Please reply Yes to submit the ticket, or choose Edit description or Edit location."}, nil
			}
		},
	}
}

// askLocationState collects the location. Outside of an edit it continues to
// next; during an edit it returns straight to the preview.
func askLocationState(next State) StateSpec {
	return StateSpec{
		Prompt: staticPrompt("Where is this located? Please share the street name or area."),
		Handle: func(_ context.Context, _ Deps, inst *Instance, input Input) (Outcome, error) {
			text := strings.TrimSpace(input.Text)
			if text == "" {
				return Outcome{ClarifyPrompt: "Please type the street name or area of the incident."}, nil
			}

			inst.SetField(FieldLocation, text)

			if inst.Field(FieldEditing) == FieldLocation {
				inst.ClearField(FieldEditing)
				return Outcome{Next: StatePreview}, nil
			}
			return Outcome{Next: next}, nil
		},
	}
}

// confirmState covers the transient window while a ticket is being created.
// A turn landing here simply re-renders the preview.
func confirmState() StateSpec {
	return StateSpec{
		Prompt: staticPrompt("One moment while I create your ticket..."),
		Handle: func(_ context.Context, _ Deps, _ *Instance, _ Input) (Outcome, error) {
			return Outcome{Next: StatePreview}, nil
		},
	}
}

func yesNo(v string) string {
	if v == "true" {
		return "Yes"
	}
	return "No"
}

func orDash(v string) string {
	if v == "" {
		return "--"
	}
	return v
}

func previewIncident(inst *Instance) string {
	imageAttached := "No"
	if len(inst.Attachment) > 0 {
		imageAttached = "Yes"
	}

	return fmt.Sprintf(`Here's a summary of your incident report:

Description: %s
Location: %s
Category: %s / %s
Blocking road or causing danger: %s
Image attached: %s

Shall I submit this ticket?`,
		inst.Field(FieldDescription),
		orDash(inst.Field(FieldLocation)),
		inst.Field(FieldCategory),
		inst.Field(FieldSubCategory),
		yesNo(inst.Field(FieldBlockedRoad)),
		imageAttached)
}
