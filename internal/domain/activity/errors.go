package activity

import "errors"

// Storage-level outcomes of participation changes. The use case layer maps
// them to transport-facing errors.
var (
	ErrActivityNotFound  = errors.New("activity not found")
	ErrAlreadyRegistered = errors.New("user already registered for activity")
	ErrActivityFull      = errors.New("activity is at maximum capacity")
	ErrNotRegistered     = errors.New("user is not registered for activity")
)
