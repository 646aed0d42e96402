package workflow

import "errors"

var (
	// ErrUnknownType indicates no definition is registered for the type
	ErrUnknownType = errors.New("unknown workflow type")

	// ErrUnknownState indicates the instance is in a state the definition
	// does not declare
	ErrUnknownState = errors.New("unknown workflow state")

	// ErrTerminal indicates the workflow has already finished
	ErrTerminal = errors.New("workflow is in a terminal state")
)
