package cached

import (
	"context"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"activity-signup-service/internal/adapter/cache"
	domain "activity-signup-service/internal/domain/activity"
	"activity-signup-service/internal/usecase/activity"
	"activity-signup-service/pkg/metrics"
)

// ActivityRepository implements activity.Repository with a cached listing.
// It wraps a persistent repository (DB) and a cache implementation; a nil
// cache turns it into a pass-through.
type ActivityRepository struct {
	dbRepo activity.Repository
	cache  cache.ActivityCache
	log    *zap.Logger
	group  singleflight.Group

	// generation counts successful writes made through this repository.
	// Listings started under an older generation are not shared with
	// callers that arrive after a write.
	generation atomic.Int64
}

var _ activity.Repository = (*ActivityRepository)(nil)

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(dbRepo activity.Repository, c cache.ActivityCache, log *zap.Logger) *ActivityRepository {
	return &ActivityRepository{
		dbRepo: dbRepo,
		cache:  c,
		log:    log,
	}
}

// ListActivities returns the listing using the cache-aside pattern.
func (r *ActivityRepository) ListActivities(ctx context.Context) ([]domain.Details, error) {
	if r.cache != nil {
		list, err := r.cache.GetList(ctx)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Error(err))
		} else if list != nil {
			metrics.ListingCacheTotal.WithLabelValues("hit").Inc()
			return list, nil
		}
		metrics.ListingCacheTotal.WithLabelValues("miss").Inc()
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	key := cache.ListKey + ":" + strconv.FormatInt(r.generation.Load(), 10)
	result, err, _ := r.group.Do(key, func() (any, error) {
		var version int64
		if r.cache != nil {
			// Another request may have populated the cache while we were waiting
			list, err := r.cache.GetList(ctx)
			if err == nil && list != nil {
				return list, nil
			}
			// Read before the DB so a write landing in between rejects the fill
			if version, err = r.cache.Version(ctx); err != nil {
				r.log.Warn("cache version error, skipping fill", zap.Error(err))
				return r.dbRepo.ListActivities(ctx)
			}
		}

		list, err := r.dbRepo.ListActivities(ctx)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			if _, err := r.cache.SetList(ctx, list, version); err != nil {
				r.log.Warn("failed to cache listing", zap.Error(err))
			}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]domain.Details), nil
}

// GetOrCreateUser delegates to the DB repository.
func (r *ActivityRepository) GetOrCreateUser(ctx context.Context, email string) (*domain.User, bool, error) {
	return r.dbRepo.GetOrCreateUser(ctx, email)
}

// GetUserByEmail delegates to the DB repository.
func (r *ActivityRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetUserByEmail(ctx, email)
}

// GetActivityByName delegates to the DB repository.
func (r *ActivityRepository) GetActivityByName(ctx context.Context, name string) (*domain.Activity, error) {
	return r.dbRepo.GetActivityByName(ctx, name)
}

// AddParticipant adds the participation in DB and invalidates the listing.
func (r *ActivityRepository) AddParticipant(ctx context.Context, activityID, userID int64) error {
	if err := r.dbRepo.AddParticipant(ctx, activityID, userID); err != nil {
		return err
	}
	r.generation.Add(1)
	r.Invalidate(ctx)
	return nil
}

// RemoveParticipant removes the participation in DB and invalidates the listing.
func (r *ActivityRepository) RemoveParticipant(ctx context.Context, activityID, userID int64) error {
	if err := r.dbRepo.RemoveParticipant(ctx, activityID, userID); err != nil {
		return err
	}
	r.generation.Add(1)
	r.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached listing and rejects fills already in flight.
// Failures are logged; the entry still expires after its TTL.
func (r *ActivityRepository) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.log.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}
