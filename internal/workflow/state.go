package workflow

// State represents a dialogue state within an intake workflow
type State string

const (
	// StateTriage asks whether the user wants a service complaint or an
	// incident report
	StateTriage State = "triage"

	// StateDescribe collects the complaint description
	StateDescribe State = "describe"

	// StateVerifyConnectivity checks whether a service problem still
	// reproduces before a ticket is raised
	StateVerifyConnectivity State = "verify_connectivity"

	// StateInitiate collects the incident description and location in a
	// single message
	StateInitiate State = "initiate"

	// StateDetectImage confirms that an uploaded image is an incident report
	StateDetectImage State = "detect_image"

	// StateCollectDetails collects details about an uploaded image
	StateCollectDetails State = "collect_details"

	// StateConfirmIncident confirms the extracted incident description
	StateConfirmIncident State = "confirm_incident"

	// StateAskLocation asks for the incident location when none was given
	StateAskLocation State = "ask_location"

	// StateHazardCheck asks whether the incident is blocking access or
	// causing danger
	StateHazardCheck State = "hazard_check"

	// StatePreview shows the collected fields and asks for confirmation
	StatePreview State = "preview"

	// StateConfirm is the transient state while the ticket is submitted
	StateConfirm State = "confirm"

	// StateComplete is the terminal success state
	StateComplete State = "complete"

	// StateFailed is the terminal state reached when the dialogue could not
	// converge
	StateFailed State = "failed"
)

// IsTerminal reports whether the state ends the workflow
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// IsValid reports whether the state is known
func (s State) IsValid() bool {
	switch s {
	case StateTriage, StateDescribe, StateVerifyConnectivity, StateInitiate,
		StateDetectImage, StateCollectDetails, StateConfirmIncident,
		StateAskLocation, StateHazardCheck, StatePreview, StateConfirm,
		StateComplete, StateFailed:
		return true
	}
	return false
}
