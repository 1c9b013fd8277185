// Package seed loads the initial activity catalog into an empty database.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "activity-signup-service/internal/domain/activity"
)

// Repository defines the storage operations the seeder needs.
type Repository interface {
	CountActivities(ctx context.Context) (int64, error)
	CreateUsers(ctx context.Context, emails []string) (map[string]int64, error)
	CreateActivities(ctx context.Context, activities []domain.NewActivity) error
}

// Result reports what a seeding run did.
type Result struct {
	Skipped            bool
	ExistingActivities int64
	UsersCreated       int
	ActivitiesCreated  int
}

// Seeder populates an empty catalog. A database that already holds at
// least one activity is left untouched.
type Seeder struct {
	repo    Repository
	log     *zap.Logger
	catalog []Entry
}

// New creates a Seeder for the given catalog.
func New(r Repository, log *zap.Logger, catalog []Entry) *Seeder {
	return &Seeder{repo: r, log: log, catalog: catalog}
}

// Run seeds the catalog unless activities already exist.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	existing, err := s.repo.CountActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	if existing > 0 {
		s.log.Info("database already has activities, skipping seed data", zap.Int64("activities", existing))
		return &Result{Skipped: true, ExistingActivities: existing}, nil
	}

	s.log.Info("seeding initial data", zap.Int("activities", len(s.catalog)))

	emails := uniqueEmails(s.catalog)
	ids, err := s.repo.CreateUsers(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	s.log.Info("users created", zap.Int("count", len(ids)))

	activities := make([]domain.NewActivity, 0, len(s.catalog))
	for _, e := range s.catalog {
		participantIDs := make([]int64, 0, len(e.Participants))
		for _, email := range e.Participants {
			id, ok := ids[email]
			if !ok {
				return nil, fmt.Errorf("user %q missing after creation", email)
			}
			participantIDs = append(participantIDs, id)
		}
		activities = append(activities, domain.NewActivity{
			Name:            e.Name,
			Description:     e.Description,
			Schedule:        e.Schedule,
			MaxParticipants: e.MaxParticipants,
			ParticipantIDs:  participantIDs,
		})
	}

	if err := s.repo.CreateActivities(ctx, activities); err != nil {
		return nil, fmt.Errorf("create activities: %w", err)
	}
	s.log.Info("database initialization complete", zap.Int("activities", len(activities)))

	return &Result{UsersCreated: len(ids), ActivitiesCreated: len(activities)}, nil
}

// uniqueEmails returns every participant email once, in first-seen order.
func uniqueEmails(catalog []Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range catalog {
		for _, email := range e.Participants {
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	return out
}
