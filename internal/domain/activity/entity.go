package activity

import "time"

// RoleStudent is the role assigned to users created through signup.
const RoleStudent = "student"

// User represents a student (or admin) identified by email.
type User struct {
	ID        int64     // ID is the unique identifier for the user
	Email     string    // Email is the unique, case-sensitive identity key
	FirstName string    // FirstName is optional and empty when unknown
	LastName  string    // LastName is optional and empty when unknown
	Role      string    // Role defaults to "student"
	CreatedAt time.Time // CreatedAt is set once on creation
}

// Activity represents a named extracurricular offering with a capacity.
type Activity struct {
	ID              int64
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	CreatedAt       time.Time
}

// Details is an activity together with the emails of its participants,
// ordered by registration time.
type Details struct {
	Activity
	Participants []string
}

// NewActivity describes an activity to be created together with the
// users that are enrolled in it from the start.
type NewActivity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	ParticipantIDs  []int64
}
