// Package classifier abstracts the natural-language capabilities the intake
// dialogues depend on: intent keyword detection, description/location
// extraction, hazard-question generation and category classification.
package classifier

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the external classification capability
// cannot be reached. Callers fall back to asking the user directly for the
// missing structured fields instead of failing the turn.
var ErrUnavailable = errors.New("classifier unavailable")

// IntentKeywords reports which intake intents a message matches
type IntentKeywords struct {
	IsComplaint bool
	IsIncident  bool
}

// Extraction holds the description and location pulled from free text.
// Location may be empty when the message names no specific place.
type Extraction struct {
	Description string
	Location    string
}

// Category holds an incident classification
type Category struct {
	Category    string
	SubCategory string
}

// Classifier defines the injected natural-language capability
type Classifier interface {
	DetectIntentKeywords(ctx context.Context, text string) (IntentKeywords, error)
	ExtractDescriptionAndLocation(ctx context.Context, text string) (Extraction, error)
	GenerateHazardQuestion(ctx context.Context, description string) (string, error)
	ClassifyCategory(ctx context.Context, description string) (Category, error)
}
