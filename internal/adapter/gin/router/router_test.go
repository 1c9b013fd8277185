package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"activity-signup-service/internal/adapter/cache"
	"activity-signup-service/internal/adapter/db/postgres"
	"activity-signup-service/internal/adapter/gin/handler"
	"activity-signup-service/internal/adapter/gin/middleware"
	"activity-signup-service/internal/adapter/repository/cached"
	"activity-signup-service/internal/usecase/activity"
	"activity-signup-service/internal/usecase/seed"
	"activity-signup-service/pkg/metrics"
)

// RouterSuite drives the full HTTP stack against a seeded SQLite database
// and a miniredis listing cache.
type RouterSuite struct {
	suite.Suite
	router *gin.Engine
	mr     *miniredis.Miniredis
	db     *gorm.DB
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	t := s.T()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	s.Require().NoError(postgres.Migrate(db))
	s.db = db

	dbRepo := postgres.NewActivityRepoPG(db, log)
	_, err = seed.New(dbRepo, log, seed.DefaultCatalog).Run(context.Background())
	s.Require().NoError(err)

	s.mr = miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := cached.NewActivityRepository(dbRepo, cache.NewRedisActivityCache(client, time.Minute, log), log)
	uc := activity.New(repo, log)

	staticDir := t.TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>Mergington</h1>"), 0o600))
	s.Require().NoError(os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("fetchActivities();"), 0o600))
	s.Require().NoError(os.Mkdir(filepath.Join(staticDir, "assets"), 0o700))

	s.router = SetupRouter(Options{
		ActivityHandler: handler.NewActivityHandler(uc, log),
		HealthHandler:   handler.NewHealthHandler(dbRepo, "activity-signup-service", log),
		RateLimiter: middleware.NewRateLimiter(client, middleware.RateLimiterConfig{
			RequestsPerSecond: 1000,
			BurstCapacity:     1000,
			Enabled:           true,
		}, log),
		StaticDir: staticDir,
		Logger:    log,
	})
}

func (s *RouterSuite) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func participationPath(activityName, action, email string) string {
	return fmt.Sprintf("/activities/%s/%s?email=%s", url.PathEscape(activityName), action, url.QueryEscape(email))
}

type activityJSON struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

func (s *RouterSuite) listActivities() map[string]activityJSON {
	w := s.do(http.MethodGet, "/activities")
	s.Require().Equal(http.StatusOK, w.Code)
	var out map[string]activityJSON
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *RouterSuite) detail(w *httptest.ResponseRecorder) string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body["detail"]
}

func (s *RouterSuite) TestRootRedirect() {
	w := s.do(http.MethodGet, "/")
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/static/index.html", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/static/index.html")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Mergington")
	s.Contains(w.Header().Get("Content-Type"), "text/html")
}

func (s *RouterSuite) TestStaticFiles() {
	w := s.do(http.MethodGet, "/static/")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Mergington")

	w = s.do(http.MethodGet, "/static/app.js")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Type"), "javascript")

	w = s.do(http.MethodGet, "/static/missing.css")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/static/assets")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestPanicIsLoggedAndCounted() {
	s.router.GET("/boom", func(*gin.Context) { panic("boom") })
	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "500"))

	w := s.do(http.MethodGet, "/boom")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(before+1, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "500")))
}

func (s *RouterSuite) TestListSeededCatalog() {
	list := s.listActivities()
	s.Len(list, 9)

	chess := list["Chess Club"]
	s.Equal("Learn strategies and compete in chess tournaments", chess.Description)
	s.Equal("Fridays, 3:30 PM - 5:00 PM", chess.Schedule)
	s.Equal(12, chess.MaxParticipants)
	s.Equal([]string{"michael@mergington.edu", "daniel@mergington.edu"}, chess.Participants)
}

func (s *RouterSuite) TestSignUpAndUnregisterFlow() {
	const email = "newbie@mergington.edu"

	// Prime the listing cache, then make sure writes invalidate it
	s.listActivities()
	s.True(s.mr.Exists(cache.ListKey))

	w := s.do(http.MethodPost, participationPath("Chess Club", "signup", email))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`{"message":"Signed up newbie@mergington.edu for Chess Club"}`, w.Body.String())
	s.False(s.mr.Exists(cache.ListKey))

	s.Equal([]string{"michael@mergington.edu", "daniel@mergington.edu", email},
		s.listActivities()["Chess Club"].Participants)

	w = s.do(http.MethodPost, participationPath("Chess Club", "signup", email))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Student is already signed up", s.detail(w))

	w = s.do(http.MethodDelete, participationPath("Chess Club", "unregister", email))
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"Unregistered newbie@mergington.edu from Chess Club"}`, w.Body.String())
	s.NotContains(s.listActivities()["Chess Club"].Participants, email)

	w = s.do(http.MethodDelete, participationPath("Chess Club", "unregister", email))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Student is not signed up for this activity", s.detail(w))
}

func (s *RouterSuite) TestUnknownActivity() {
	w := s.do(http.MethodPost, participationPath("Underwater Basket Weaving", "signup", "newbie@mergington.edu"))
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Activity not found", s.detail(w))

	// The user created by the failed signup still exists
	var count int64
	s.Require().NoError(s.db.Table("users").Where("email = ?", "newbie@mergington.edu").Count(&count).Error)
	s.Equal(int64(1), count)

	w = s.do(http.MethodDelete, participationPath("Underwater Basket Weaving", "unregister", "michael@mergington.edu"))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestUnregisterUnknownEmail() {
	w := s.do(http.MethodDelete, participationPath("Chess Club", "unregister", "ghost@mergington.edu"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Student is not signed up for this activity", s.detail(w))
}

func (s *RouterSuite) TestCapacity() {
	// Math Club holds 10 and starts with 2
	for i := 0; i < 8; i++ {
		w := s.do(http.MethodPost, participationPath("Math Club", "signup", fmt.Sprintf("m%d@mergington.edu", i)))
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}

	w := s.do(http.MethodPost, participationPath("Math Club", "signup", "late@mergington.edu"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Activity is at maximum capacity", s.detail(w))

	s.Len(s.listActivities()["Math Club"].Participants, 10)

	// Freeing a seat lets the next student in
	w = s.do(http.MethodDelete, participationPath("Math Club", "unregister", "james@mergington.edu"))
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.do(http.MethodPost, participationPath("Math Club", "signup", "late@mergington.edu"))
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestMissingEmail() {
	w := s.do(http.MethodPost, "/activities/Chess%20Club/signup")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.detail(w), "Email is required")
}

func (s *RouterSuite) TestOperationalEndpoints() {
	w := s.do(http.MethodGet, "/health")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"healthy"`)

	s.do(http.MethodPost, participationPath("Chess Club", "signup", "metrics@mergington.edu"))
	w = s.do(http.MethodGet, "/metrics")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "activities_signups_total")
	s.Contains(w.Body.String(), "activities_http_requests_total")

	w = s.do(http.MethodGet, "/openapi.json")
	s.Equal(http.StatusOK, w.Code)
	var doc map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &doc))
	s.Contains(doc["paths"], "/activities/{activity_name}/signup")

	w = s.do(http.MethodGet, "/swagger/index.html")
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestRequestIDEchoed() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	s.router.ServeHTTP(w, req)
	s.Equal("abc-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := handler.NewActivityHandler(stubUsecase{}, log)
	r := SetupRouter(Options{
		ActivityHandler: h,
		HealthHandler:   handler.NewHealthHandler(okPinger{}, "svc", log),
		RateLimiter: middleware.NewRateLimiter(client, middleware.RateLimiterConfig{
			RequestsPerSecond: 0.001,
			BurstCapacity:     2,
			Enabled:           true,
		}, log),
		StaticDir: t.TempDir(),
		Logger:    log,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activities", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health is outside the limited group
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type stubUsecase struct{}

func (stubUsecase) ListActivities(context.Context) (*activity.ListActivitiesResponse, error) {
	return &activity.ListActivitiesResponse{Activities: map[string]activity.ActivityInfo{}}, nil
}

func (stubUsecase) SignUp(context.Context, activity.SignUpRequest) (*activity.SignUpResponse, error) {
	return &activity.SignUpResponse{}, nil
}

func (stubUsecase) Unregister(context.Context, activity.UnregisterRequest) (*activity.UnregisterResponse, error) {
	return &activity.UnregisterResponse{}, nil
}
