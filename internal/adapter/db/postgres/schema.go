package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`         // Unique identifier with auto-increment
	Email        string    `gorm:"not null;uniqueIndex"`             // Identity key (case-sensitive)
	FirstName    *string   `gorm:"column:first_name"`                // Optional
	LastName     *string   `gorm:"column:last_name"`                 // Optional
	PasswordHash *string   `gorm:"column:password_hash"`             // Reserved for authentication
	Role         string    `gorm:"not null;default:student;size:32"` // student or admin
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// ActivitySchema represents the database schema for the activities table.
type ActivitySchema struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	Name            string    `gorm:"not null;uniqueIndex"`
	Description     string    `gorm:"not null"`
	Schedule        string    `gorm:"not null"`
	MaxParticipants int       `gorm:"not null;check:chk_activities_max_participants,max_participants > 0"`
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName specifies the table name for the ActivitySchema model.
func (ActivitySchema) TableName() string {
	return "activities"
}

// ParticipationSchema is the join entity between users and activities.
// The composite primary key forbids double enrollment.
type ParticipationSchema struct {
	ActivityID   int64     `gorm:"primaryKey;autoIncrement:false"`
	UserID       int64     `gorm:"primaryKey;autoIncrement:false;index"`
	RegisteredAt time.Time `gorm:"not null"`

	Activity ActivitySchema `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE"`
	User     UserSchema     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the ParticipationSchema model.
func (ParticipationSchema) TableName() string {
	return "activity_participants"
}

// ClubSchema represents the database schema for the clubs table.
// Clubs are not exposed by any endpoint yet.
type ClubSchema struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"not null;uniqueIndex"`
	Description  string  `gorm:"not null"`
	Category     *string
	ContactEmail *string
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for the ClubSchema model.
func (ClubSchema) TableName() string {
	return "clubs"
}

// EventSchema represents the database schema for the events table.
// Events are not exposed by any endpoint yet.
type EventSchema struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	EventDate   time.Time `gorm:"not null"`
	StartTime   string    `gorm:"not null;size:16"`
	EndTime     string    `gorm:"not null;size:16"`
	MaxCapacity int       `gorm:"not null"`
	Category    *string
	ClubID      *int64      `gorm:"index"`
	Club        *ClubSchema `gorm:"foreignKey:ClubID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time   `gorm:"not null"`
}

// TableName specifies the table name for the EventSchema model.
func (EventSchema) TableName() string {
	return "events"
}

// Migrate creates or updates every table. Running it against an
// up-to-date database is a no-op.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&UserSchema{},
		&ActivitySchema{},
		&ParticipationSchema{},
		&ClubSchema{},
		&EventSchema{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
