package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a workflow definition
type Type string

const (
	// TypeComplaint handles service complaints and feedback
	TypeComplaint Type = "complaint"

	// TypeTextIncident handles incident reports started from text
	TypeTextIncident Type = "text_incident"

	// TypeImageIncident handles incident reports started from an image
	TypeImageIncident Type = "image_incident"
)

// SubmissionStatus tracks the ticket submission of an instance
type SubmissionStatus string

const (
	// SubmissionNone means no submission has been attempted
	SubmissionNone SubmissionStatus = ""

	// SubmissionPending means a submission attempt is in flight
	SubmissionPending SubmissionStatus = "pending"

	// SubmissionSubmitted means a ticket exists for this instance
	SubmissionSubmitted SubmissionStatus = "submitted"
)

// Field names of the structured data collected by the dialogues
const (
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldBlockedRoad = "blockedRoad"
	FieldCategory    = "category"
	FieldSubCategory = "subCategory"
	FieldFeedback    = "feedback"
	FieldEditing     = "editing"
)

// Input is one user turn fed into a workflow
type Input struct {
	Text       string
	Attachment []byte
}

// HasAttachment reports whether the turn carries an image
func (in Input) HasAttachment() bool {
	return len(in.Attachment) > 0
}

// Instance is a running workflow. It is persisted as part of the session and
// mutated in place by the engine.
type Instance struct {
	ID               string            `json:"id"`
	Type             Type              `json:"type"`
	State            State             `json:"state"`
	Fields           map[string]string `json:"fields"`
	Attachment       []byte            `json:"attachment,omitempty"`
	SubmissionStatus SubmissionStatus  `json:"submission_status,omitempty"`
	RetryCount       int               `json:"retry_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewInstance creates an instance at the given initial state
func NewInstance(t Type, initial State) *Instance {
	now := time.Now().UTC()
	return &Instance{
		ID:        uuid.NewString(),
		Type:      t,
		State:     initial,
		Fields:    make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Field returns a collected field value, or "" when unset
func (i *Instance) Field(name string) string {
	if i.Fields == nil {
		return ""
	}
	return i.Fields[name]
}

// SetField stores a collected field value
func (i *Instance) SetField(name, value string) {
	if i.Fields == nil {
		i.Fields = make(map[string]string)
	}
	i.Fields[name] = value
}

// ClearField removes a collected field
func (i *Instance) ClearField(name string) {
	delete(i.Fields, name)
}
