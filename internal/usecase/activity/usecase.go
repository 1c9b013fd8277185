package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "activity-signup-service/internal/domain/activity"
	pkgerrors "activity-signup-service/pkg/errors"
	"activity-signup-service/pkg/logger"
	"activity-signup-service/pkg/metrics"
)

// Messages returned to clients. The browser client displays them verbatim.
const (
	MsgActivityNotFound = "Activity not found"
	MsgAlreadySignedUp  = "Student is already signed up"
	MsgActivityFull     = "Activity is at maximum capacity"
	MsgNotSignedUp      = "Student is not signed up for this activity"
)

// Repository defines the data access operations the activity service needs.
type Repository interface {
	ListActivities(ctx context.Context) ([]domain.Details, error)                 // All activities with participant emails
	GetOrCreateUser(ctx context.Context, email string) (*domain.User, bool, error) // Atomic find-or-create by email
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)        // nil when absent
	GetActivityByName(ctx context.Context, name string) (*domain.Activity, error)  // nil when absent
	AddParticipant(ctx context.Context, activityID, userID int64) error            // Enforces uniqueness and capacity
	RemoveParticipant(ctx context.Context, activityID, userID int64) error         // ErrNotRegistered when absent
}

// Usecase implements signup and unregister on top of a Repository.
type Usecase struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new instance of Usecase.
func New(r Repository, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a bad request error.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return pkgerrors.NewBadRequestError("validation failed: " + strings.Join(messages, ", "))
	}
	return err
}

// ListActivities returns the whole catalog keyed by activity name.
func (uc *Usecase) ListActivities(ctx context.Context) (*ListActivitiesResponse, error) {
	details, err := uc.repo.ListActivities(ctx)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to list activities", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list activities", err)
	}

	activities := make(map[string]ActivityInfo, len(details))
	for _, d := range details {
		participants := make([]string, len(d.Participants))
		copy(participants, d.Participants)
		activities[d.Name] = ActivityInfo{
			Description:     d.Description,
			Schedule:        d.Schedule,
			MaxParticipants: d.MaxParticipants,
			Participants:    participants,
		}
	}

	return &ListActivitiesResponse{Activities: activities}, nil
}

// SignUp enrolls the student identified by email in the named activity.
//
// The user is found or created before the activity is resolved, so a failed
// signup can leave behind a user without participations.
func (uc *Usecase) SignUp(ctx context.Context, in SignUpRequest) (*SignUpResponse, error) {
	log := logger.WithContext(ctx, uc.log).With(zap.String("activity", in.ActivityName), zap.String("email", in.Email))
	log.Info("signing up student")

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, formatValidationError(err)
	}

	user, created, err := uc.repo.GetOrCreateUser(ctx, in.Email)
	if err != nil {
		log.Error("failed to find or create user", zap.Error(err))
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, pkgerrors.NewInternalError("failed to sign up", err)
	}
	if created {
		metrics.UsersCreatedTotal.Inc()
		log.Debug("user created on first signup", zap.Int64("user_id", user.ID))
	}

	act, err := uc.repo.GetActivityByName(ctx, in.ActivityName)
	if err != nil {
		log.Error("failed to get activity", zap.Error(err))
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, pkgerrors.NewInternalError("failed to sign up", err)
	}
	if act == nil {
		log.Warn("activity not found")
		metrics.SignupsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, pkgerrors.NewNotFoundError("activity", MsgActivityNotFound)
	}

	if err := uc.repo.AddParticipant(ctx, act.ID, user.ID); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyRegistered):
			log.Warn("student already signed up")
			metrics.SignupsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
			return nil, pkgerrors.NewConflictError("participation", MsgAlreadySignedUp)
		case errors.Is(err, domain.ErrActivityFull):
			log.Warn("activity is full", zap.Int("max_participants", act.MaxParticipants))
			metrics.SignupsTotal.WithLabelValues(metrics.OutcomeFull).Inc()
			return nil, pkgerrors.NewConflictError("participation", MsgActivityFull)
		case errors.Is(err, domain.ErrActivityNotFound):
			log.Warn("activity disappeared during signup")
			metrics.SignupsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return nil, pkgerrors.NewNotFoundError("activity", MsgActivityNotFound)
		default:
			log.Error("failed to add participant", zap.Error(err))
			metrics.SignupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, pkgerrors.NewInternalError("failed to sign up", err)
		}
	}

	metrics.SignupsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return &SignUpResponse{
		Message: fmt.Sprintf("Signed up %s for %s", in.Email, in.ActivityName),
	}, nil
}

// Unregister removes the student identified by email from the named activity.
// An unknown email and an email that is not enrolled produce the same error.
func (uc *Usecase) Unregister(ctx context.Context, in UnregisterRequest) (*UnregisterResponse, error) {
	log := logger.WithContext(ctx, uc.log).With(zap.String("activity", in.ActivityName), zap.String("email", in.Email))
	log.Info("unregistering student")

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, formatValidationError(err)
	}

	user, err := uc.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to get user", zap.Error(err))
		metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, pkgerrors.NewInternalError("failed to unregister", err)
	}
	if user == nil {
		log.Warn("unknown email")
		metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeNotRegistered).Inc()
		return nil, pkgerrors.NewBadRequestError(MsgNotSignedUp)
	}

	act, err := uc.repo.GetActivityByName(ctx, in.ActivityName)
	if err != nil {
		log.Error("failed to get activity", zap.Error(err))
		metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, pkgerrors.NewInternalError("failed to unregister", err)
	}
	if act == nil {
		log.Warn("activity not found")
		metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, pkgerrors.NewNotFoundError("activity", MsgActivityNotFound)
	}

	if err := uc.repo.RemoveParticipant(ctx, act.ID, user.ID); err != nil {
		if errors.Is(err, domain.ErrNotRegistered) {
			log.Warn("student not signed up")
			metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeNotRegistered).Inc()
			return nil, pkgerrors.NewBadRequestError(MsgNotSignedUp)
		}
		log.Error("failed to remove participant", zap.Error(err))
		metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, pkgerrors.NewInternalError("failed to unregister", err)
	}

	metrics.UnregistrationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return &UnregisterResponse{
		Message: fmt.Sprintf("Unregistered %s from %s", in.Email, in.ActivityName),
	}, nil
}
