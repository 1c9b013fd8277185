package activity

// ListActivitiesResponse maps each activity name to its details.
type ListActivitiesResponse struct {
	Activities map[string]ActivityInfo
}

// ActivityInfo is the public view of an activity.
type ActivityInfo struct {
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// SignUpRequest represents the request payload for signing up a student.
// Email is only required to be non-empty; it is not checked against RFC 5322.
type SignUpRequest struct {
	ActivityName string `validate:"required"`
	Email        string `validate:"required"`
}

// SignUpResponse represents the response payload after a successful signup.
type SignUpResponse struct {
	Message string
}

// UnregisterRequest represents the request payload for unregistering a student.
type UnregisterRequest struct {
	ActivityName string `validate:"required"`
	Email        string `validate:"required"`
}

// UnregisterResponse represents the response payload after a successful unregister.
type UnregisterResponse struct {
	Message string
}
