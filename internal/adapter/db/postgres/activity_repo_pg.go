package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "activity-signup-service/internal/domain/activity"
)

// ActivityRepoPG implements the activity and seed repositories using GORM.
// It runs on PostgreSQL in production and on SQLite for local runs and tests.
type ActivityRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewActivityRepoPG creates a new instance of ActivityRepoPG.
func NewActivityRepoPG(db *gorm.DB, log *zap.Logger) *ActivityRepoPG {
	return &ActivityRepoPG{db: db, log: log}
}

// participantRow is the projection used to collect participant emails.
type participantRow struct {
	ActivityID int64
	Email      string
}

// ListActivities returns every activity with its participant emails,
// activities ordered by ID and participants by registration time.
func (r *ActivityRepoPG) ListActivities(ctx context.Context) ([]domain.Details, error) {
	var (
		models []ActivitySchema
		rows   []participantRow
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id").Find(&models).Error; err != nil {
			return err
		}
		return tx.Table("activity_participants AS ap").
			Select("ap.activity_id, u.email").
			Joins("JOIN users u ON u.id = ap.user_id").
			Order("ap.activity_id, ap.registered_at, ap.user_id").
			Scan(&rows).Error
	})
	if err != nil {
		r.log.Error("failed to list activities from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	emails := make(map[int64][]string, len(models))
	for _, row := range rows {
		emails[row.ActivityID] = append(emails[row.ActivityID], row.Email)
	}

	result := make([]domain.Details, len(models))
	for i, m := range models {
		participants := emails[m.ID]
		if participants == nil {
			participants = []string{}
		}
		result[i] = domain.Details{
			Activity:     toDomainActivity(m),
			Participants: participants,
		}
	}
	return result, nil
}

// GetOrCreateUser returns the user with the given email, inserting it first
// when absent. The insert uses ON CONFLICT DO NOTHING so concurrent callers
// with the same email converge on a single row. The boolean reports whether
// this call created the row.
func (r *ActivityRepoPG) GetOrCreateUser(ctx context.Context, email string) (*domain.User, bool, error) {
	if email == "" {
		return nil, false, errors.New("email cannot be empty")
	}

	model := UserSchema{
		Email: email,
		Role:  domain.RoleStudent,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&model)
	if res.Error != nil {
		r.log.Error("failed to insert user in db", zap.Error(res.Error), zap.String("email", email))
		return nil, false, fmt.Errorf("failed to create user: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		r.log.Info("user created in db", zap.Int64("id", model.ID), zap.String("email", email))
		return toDomainUser(model), true, nil
	}

	var existing UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err != nil {
		r.log.Error("failed to load existing user from db", zap.Error(err), zap.String("email", email))
		return nil, false, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toDomainUser(existing), false, nil
}

// GetUserByEmail retrieves a user by email. It returns nil, nil when absent.
func (r *ActivityRepoPG) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toDomainUser(model), nil
}

// GetActivityByName retrieves an activity by its exact name.
// It returns nil, nil when absent.
func (r *ActivityRepoPG) GetActivityByName(ctx context.Context, name string) (*domain.Activity, error) {
	var model ActivitySchema
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("activity not found by name", zap.String("name", name))
			return nil, nil
		}
		r.log.Error("failed to get activity by name from db", zap.Error(err), zap.String("name", name))
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	a := toDomainActivity(model)
	return &a, nil
}

// AddParticipant enrolls a user in an activity. The activity row is locked
// for the duration of the transaction so the duplicate and capacity checks
// cannot interleave with another signup for the same activity.
func (r *ActivityRepoPG) AddParticipant(ctx context.Context, activityID, userID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var act ActivitySchema
		if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).First(&act, activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrActivityNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&ParticipationSchema{}).
			Where("activity_id = ? AND user_id = ?", activityID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domain.ErrAlreadyRegistered
		}

		var count int64
		if err := tx.Model(&ParticipationSchema{}).Where("activity_id = ?", activityID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(act.MaxParticipants) {
			return domain.ErrActivityFull
		}

		p := ParticipationSchema{
			ActivityID:   activityID,
			UserID:       userID,
			RegisteredAt: time.Now().UTC(),
		}
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyRegistered
			}
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		r.log.Info("participant added in db", zap.Int64("activity_id", activityID), zap.Int64("user_id", userID))
		return nil
	case errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrActivityFull):
		r.log.Debug("participant not added", zap.Int64("activity_id", activityID), zap.Int64("user_id", userID), zap.Error(err))
		return err
	default:
		r.log.Error("failed to add participant in db", zap.Error(err), zap.Int64("activity_id", activityID), zap.Int64("user_id", userID))
		return fmt.Errorf("failed to add participant: %w", err)
	}
}

// RemoveParticipant deletes exactly one (activity, user) pair. It returns
// ErrNotRegistered when the pair does not exist.
func (r *ActivityRepoPG) RemoveParticipant(ctx context.Context, activityID, userID int64) error {
	res := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Delete(&ParticipationSchema{})
	if res.Error != nil {
		r.log.Error("failed to remove participant in db", zap.Error(res.Error), zap.Int64("activity_id", activityID), zap.Int64("user_id", userID))
		return fmt.Errorf("failed to remove participant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotRegistered
	}

	r.log.Info("participant removed in db", zap.Int64("activity_id", activityID), zap.Int64("user_id", userID))
	return nil
}

// CountActivities returns the number of activity rows.
func (r *ActivityRepoPG) CountActivities(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ActivitySchema{}).Count(&count).Error; err != nil {
		r.log.Error("failed to count activities in db", zap.Error(err))
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

// CreateUsers makes sure a user exists for every email, in one transaction,
// and returns the user ID for each email. Existing users are reused.
func (r *ActivityRepoPG) CreateUsers(ctx context.Context, emails []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(emails))
	if len(emails) == 0 {
		return ids, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := make([]UserSchema, len(emails))
		for i, email := range emails {
			models[i] = UserSchema{Email: email, Role: domain.RoleStudent}
		}
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
			Create(&models).Error; err != nil {
			return err
		}

		var stored []UserSchema
		if err := tx.Where("email IN ?", emails).Find(&stored).Error; err != nil {
			return err
		}
		for _, u := range stored {
			ids[u.Email] = u.ID
		}
		return nil
	})
	if err != nil {
		r.log.Error("failed to create users in db", zap.Error(err), zap.Int("count", len(emails)))
		return nil, fmt.Errorf("failed to create users: %w", err)
	}

	r.log.Info("users ensured in db", zap.Int("count", len(ids)))
	return ids, nil
}

// CreateActivities inserts the activities and their initial participants
// in one transaction.
func (r *ActivityRepoPG) CreateActivities(ctx context.Context, activities []domain.NewActivity) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range activities {
			model := ActivitySchema{
				Name:            a.Name,
				Description:     a.Description,
				Schedule:        a.Schedule,
				MaxParticipants: a.MaxParticipants,
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("activity %q: %w", a.Name, err)
			}

			for _, userID := range a.ParticipantIDs {
				p := ParticipationSchema{
					ActivityID:   model.ID,
					UserID:       userID,
					RegisteredAt: time.Now().UTC(),
				}
				if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
					return fmt.Errorf("activity %q participant %d: %w", a.Name, userID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("failed to create activities in db", zap.Error(err), zap.Int("count", len(activities)))
		return fmt.Errorf("failed to create activities: %w", err)
	}

	r.log.Info("activities created in db", zap.Int("count", len(activities)))
	return nil
}

// Ping checks that the database answers.
func (r *ActivityRepoPG) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func toDomainUser(m UserSchema) *domain.User {
	u := &domain.User{
		ID:        m.ID,
		Email:     m.Email,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
	if m.FirstName != nil {
		u.FirstName = *m.FirstName
	}
	if m.LastName != nil {
		u.LastName = *m.LastName
	}
	return u
}

func toDomainActivity(m ActivitySchema) domain.Activity {
	return domain.Activity{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		Schedule:        m.Schedule,
		MaxParticipants: m.MaxParticipants,
		CreatedAt:       m.CreatedAt,
	}
}
