package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"activity-signup-service/internal/adapter/cache"
	domain "activity-signup-service/internal/domain/activity"
)

// stubRepo is a hand-written activity.Repository that counts listing calls.
type stubRepo struct {
	listCalls atomic.Int32
	listDelay time.Duration
	listErr   error
	addErr    error
	removeErr error

	mu   sync.Mutex
	list []domain.Details
	// joiner is appended to the first activity on a successful AddParticipant.
	joiner string
	// afterSnapshot runs once the listing has been read, before it is returned.
	afterSnapshot func()
}

func (s *stubRepo) ListActivities(context.Context) ([]domain.Details, error) {
	s.listCalls.Add(1)

	s.mu.Lock()
	var snapshot []domain.Details
	for _, d := range s.list {
		d.Participants = append([]string(nil), d.Participants...)
		snapshot = append(snapshot, d)
	}
	hook := s.afterSnapshot
	s.afterSnapshot = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if s.listDelay > 0 {
		time.Sleep(s.listDelay)
	}
	return snapshot, s.listErr
}

func (s *stubRepo) GetOrCreateUser(_ context.Context, email string) (*domain.User, bool, error) {
	return &domain.User{ID: 1, Email: email}, false, nil
}

func (s *stubRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return &domain.User{ID: 1, Email: email}, nil
}

func (s *stubRepo) GetActivityByName(_ context.Context, name string) (*domain.Activity, error) {
	return &domain.Activity{ID: 1, Name: name, MaxParticipants: 12}, nil
}

func (s *stubRepo) AddParticipant(context.Context, int64, int64) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joiner != "" && len(s.list) > 0 {
		s.list[0].Participants = append(s.list[0].Participants, s.joiner)
	}
	return nil
}

func (s *stubRepo) RemoveParticipant(context.Context, int64, int64) error { return s.removeErr }

// pauseAfterSnapshot makes the next listing read block after it has taken its
// snapshot. The returned channels report the pause and release it.
func (s *stubRepo) pauseAfterSnapshot() (paused <-chan struct{}, release chan<- struct{}) {
	p := make(chan struct{})
	r := make(chan struct{})
	s.mu.Lock()
	s.afterSnapshot = func() {
		close(p)
		<-r
	}
	s.mu.Unlock()
	return p, r
}

func setup(t *testing.T, db *stubRepo) (*ActivityRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	c := cache.NewRedisActivityCache(client, time.Minute, log)
	return NewActivityRepository(db, c, log), mr
}

func listing() []domain.Details {
	return []domain.Details{{
		Activity:     domain.Activity{ID: 1, Name: "Chess Club", MaxParticipants: 12},
		Participants: []string{"michael@mergington.edu"},
	}}
}

func TestActivityRepository_ListActivities_CachesResult(t *testing.T) {
	db := &stubRepo{list: listing()}
	repo, mr := setup(t, db)
	ctx := context.Background()

	first, err := repo.ListActivities(ctx)
	require.NoError(t, err)
	second, err := repo.ListActivities(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), db.listCalls.Load())
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(cache.ListKey))
}

func TestActivityRepository_InvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("add participant", func(t *testing.T) {
		db := &stubRepo{list: listing()}
		repo, mr := setup(t, db)

		_, err := repo.ListActivities(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.AddParticipant(ctx, 1, 2))
		assert.False(t, mr.Exists(cache.ListKey))

		_, err = repo.ListActivities(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), db.listCalls.Load())
	})

	t.Run("remove participant", func(t *testing.T) {
		db := &stubRepo{list: listing()}
		repo, mr := setup(t, db)

		_, err := repo.ListActivities(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.RemoveParticipant(ctx, 1, 2))
		assert.False(t, mr.Exists(cache.ListKey))
	})

	t.Run("failed write keeps cache", func(t *testing.T) {
		db := &stubRepo{list: listing(), addErr: domain.ErrActivityFull}
		repo, mr := setup(t, db)

		_, err := repo.ListActivities(ctx)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.AddParticipant(ctx, 1, 2), domain.ErrActivityFull)
		assert.True(t, mr.Exists(cache.ListKey))
	})
}

func TestActivityRepository_SingleFlight(t *testing.T) {
	db := &stubRepo{list: listing(), listDelay: 50 * time.Millisecond}
	repo, _ := setup(t, db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.ListActivities(ctx)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, db.listCalls.Load(), int32(2))
}

func TestActivityRepository_CacheDownFallsBackToDB(t *testing.T) {
	db := &stubRepo{list: listing()}
	repo, mr := setup(t, db)
	mr.Close()

	got, err := repo.ListActivities(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Invalidation failures are swallowed
	assert.NoError(t, repo.AddParticipant(context.Background(), 1, 2))
}

func TestActivityRepository_NilCache(t *testing.T) {
	db := &stubRepo{list: listing()}
	repo := NewActivityRepository(db, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := repo.ListActivities(ctx)
	require.NoError(t, err)
	_, err = repo.ListActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), db.listCalls.Load())

	assert.NoError(t, repo.RemoveParticipant(ctx, 1, 1))
	repo.Invalidate(ctx)
}

func TestActivityRepository_DBError(t *testing.T) {
	db := &stubRepo{listErr: errors.New("db down")}
	repo, mr := setup(t, db)

	_, err := repo.ListActivities(context.Background())
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists(cache.ListKey))
}

func TestActivityRepository_SignupDuringListingIsNotHidden(t *testing.T) {
	db := &stubRepo{list: listing(), joiner: "new@mergington.edu"}
	repo, mr := setup(t, db)
	ctx := context.Background()

	paused, release := db.pauseAfterSnapshot()
	done := make(chan []domain.Details)
	go func() {
		got, err := repo.ListActivities(ctx)
		assert.NoError(t, err)
		done <- got
	}()

	<-paused
	require.NoError(t, repo.AddParticipant(ctx, 1, 2))

	// A listing requested after the signup must not join the older read
	fresh, err := repo.ListActivities(ctx)
	require.NoError(t, err)
	assert.Contains(t, fresh[0].Participants, "new@mergington.edu")

	close(release)
	stale := <-done
	assert.NotContains(t, stale[0].Participants, "new@mergington.edu")

	got, err := repo.ListActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"michael@mergington.edu", "new@mergington.edu"}, got[0].Participants)
	assert.True(t, mr.Exists(cache.ListKey))
	assert.Equal(t, int32(2), db.listCalls.Load())
}

func TestActivityRepository_StaleFillAfterInvalidateIsDropped(t *testing.T) {
	db := &stubRepo{list: listing(), joiner: "new@mergington.edu"}
	repo, mr := setup(t, db)
	ctx := context.Background()

	paused, release := db.pauseAfterSnapshot()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := repo.ListActivities(ctx)
		assert.NoError(t, err)
	}()

	<-paused
	require.NoError(t, repo.AddParticipant(ctx, 1, 2))
	close(release)
	<-done

	assert.False(t, mr.Exists(cache.ListKey))

	got, err := repo.ListActivities(ctx)
	require.NoError(t, err)
	assert.Contains(t, got[0].Participants, "new@mergington.edu")
}
