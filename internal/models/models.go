// Package models holds the data structures shared across the intake service
package models

import (
	"time"

	"github.com/mbpp-digital/intake/internal/workflow"
)

// TurnRequest is one inbound user message
type TurnRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	Text       string `json:"text"`
	Attachment []byte `json:"attachment,omitempty"`
}

// TurnResponse is the reply rendered for one turn
type TurnResponse struct {
	SessionID         string   `json:"session_id"`
	PromptText        string   `json:"prompt_text"`
	QuickReplies      []string `json:"quick_replies,omitempty"`
	TicketNumber      string   `json:"ticket_number,omitempty"`
	AttachmentEchoURL string   `json:"attachment_echo_url,omitempty"`
}

// Session is one conversation. ActiveWorkflow is nil when no dialogue is in
// progress. Version backs optimistic concurrency in the store.
type Session struct {
	SessionID      string             `json:"session_id"`
	CreatedAt      time.Time          `json:"created_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
	Version        int64              `json:"version"`
	ActiveWorkflow *workflow.Instance `json:"active_workflow,omitempty"`
}

// Ticket is a submitted intake record
type Ticket struct {
	TicketNumber string    `json:"ticket_number"`
	WorkflowID   string    `json:"workflow_id"`
	WorkflowType string    `json:"workflow_type"`
	Subject      string    `json:"subject"`
	Details      string    `json:"details"`
	Location     string    `json:"location"`
	Feedback     string    `json:"feedback"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category"`
	BlockedRoad  bool      `json:"blocked_road"`
	ImageURL     string    `json:"image_url,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
