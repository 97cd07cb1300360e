package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/cache"
	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/models"
	"github.com/noah-isme/gema-live-api/internal/repository"
)

// stubLive records broadcasts so tests can assert on the fan-out without a
// websocket transport.
type stubLive struct {
	mu         sync.Mutex
	created    []dto.TestCaseCreatedEvent
	published  []dto.TestCasePublishedEvent
	submission []dto.SubmissionUpdate
	statusMaps map[string]map[string]string
}

func newStubLive() *stubLive {
	return &stubLive{statusMaps: map[string]map[string]string{}}
}

func (s *stubLive) ServeConnection(_ *websocket.Conn, _ ConnectionOptions) {}

func (s *stubLive) Members(string) []string { return nil }

func (s *stubLive) BroadcastTestCaseCreated(_ string, event dto.TestCaseCreatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, event)
}

func (s *stubLive) BroadcastTestCasePublished(_ string, event dto.TestCasePublishedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, event)
}

func (s *stubLive) BroadcastSubmissionUpdate(_ string, event dto.SubmissionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submission = append(s.submission, event)
}

func (s *stubLive) Stamp(string, dto.LiveEventKind) int64 { return time.Now().UnixMilli() }

func (s *stubLive) StatusMap(_ context.Context, testCaseID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.statusMaps[testCaseID]; ok {
		return m, nil
	}
	return map[string]string{}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Room{}, &models.TestCase{}, &models.Submission{}))
	return db
}

func newTestCaseServiceForTest(t *testing.T, store *cache.Store) (TestCaseService, *stubLive, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	live := newStubLive()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewTestCaseService(repository.NewTestCaseRepository(db), repository.NewRoomRepository(db), store, live, validate, zerolog.Nop(), time.Minute)
	return svc, live, db
}

func TestUpsertCreatesRoomLazilyAndBroadcasts(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())

	svc, live, db := newTestCaseServiceForTest(t, store)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, "room-1", "teacher-1", RoleTeacher, dto.TestCaseUpsertRequest{
		Title: "Sum two numbers",
		Input: "2 3",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.Published)

	var room models.Room
	require.NoError(t, db.First(&room, "id = ?", "room-1").Error)

	require.Len(t, live.created, 1)
	require.Equal(t, 1, live.created[0].TotalTestCases)
	require.NotZero(t, live.created[0].Timestamp)
}

func TestUpsertRejectsNonTeacher(t *testing.T) {
	svc, _, _ := newTestCaseServiceForTest(t, cache.NewStore(nil, zerolog.Nop()))

	_, err := svc.Upsert(context.Background(), "room-1", "student-1", RoleStudent, dto.TestCaseUpsertRequest{Title: "nope"})
	require.ErrorIs(t, err, ErrNotRoomTeacher)
}

func TestPublishSameIDTwiceKeepsOneEntryWithLatestOutput(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())

	svc, live, _ := newTestCaseServiceForTest(t, store)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, "room-1", "teacher-1", RoleTeacher, dto.TestCaseUpsertRequest{ID: "tc-1", Input: "5"})
	require.NoError(t, err)

	_, err = svc.Publish(ctx, "room-1", created.ID, "teacher-1", RoleTeacher, dto.TestCasePublishRequest{ExpectedOutput: "5"})
	require.NoError(t, err)

	second, err := svc.Publish(ctx, "room-1", created.ID, "teacher-1", RoleTeacher, dto.TestCasePublishRequest{ExpectedOutput: "25"})
	require.NoError(t, err)
	require.Equal(t, "25", second.ExpectedOutput)

	list, err := svc.List(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "25", list[0].ExpectedOutput)
	require.True(t, list[0].Published)

	require.Len(t, live.published, 2)
}

func TestPublishMissingTestCaseRejectedBeforeSideEffects(t *testing.T) {
	svc, live, _ := newTestCaseServiceForTest(t, cache.NewStore(nil, zerolog.Nop()))

	_, err := svc.Publish(context.Background(), "room-1", "ghost", "teacher-1", RoleTeacher, dto.TestCasePublishRequest{ExpectedOutput: "1"})
	require.ErrorIs(t, err, ErrTestCaseNotFound)
	require.Empty(t, live.published)
}

func TestListBehavesIdenticallyWithCacheDisabled(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	cached := cache.NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())
	degraded := cache.NewStore(nil, zerolog.Nop())

	ctx := context.Background()

	run := func(store *cache.Store) []dto.TestCaseResponse {
		svc, _, _ := newTestCaseServiceForTest(t, store)
		for i := 0; i < 3; i++ {
			_, err := svc.Upsert(ctx, "room-1", "teacher-1", RoleTeacher, dto.TestCaseUpsertRequest{
				ID:    fmt.Sprintf("tc-%d", i),
				Title: fmt.Sprintf("Case %d", i),
			})
			require.NoError(t, err)
		}
		list, err := svc.List(ctx, "room-1")
		require.NoError(t, err)
		// A second read must be identical whether it hits cache or store.
		again, err := svc.List(ctx, "room-1")
		require.NoError(t, err)
		require.Equal(t, list, again)
		return list
	}

	withCache := run(cached)
	withoutCache := run(degraded)

	require.Len(t, withCache, 3)
	require.Len(t, withoutCache, 3)
	for i := range withCache {
		require.Equal(t, withCache[i].ID, withoutCache[i].ID)
		require.Equal(t, withCache[i].Title, withoutCache[i].Title)
	}
}

func TestCachedListGrowsByOneOnPublish(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())

	svc, live, _ := newTestCaseServiceForTest(t, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Upsert(ctx, "room-1", "teacher-1", RoleTeacher, dto.TestCaseUpsertRequest{ID: fmt.Sprintf("tc-%d", i)})
		require.NoError(t, err)
	}

	before, err := svc.List(ctx, "room-1")
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, "room-1", "teacher-1", RoleTeacher, dto.TestCaseUpsertRequest{ID: "tc-new"})
	require.NoError(t, err)

	// The broadcast went out, and the cached list already reflects the append.
	require.Len(t, live.created, 3)
	after, err := svc.List(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
}

func TestGetFallsBackToStoreAndRepopulates(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())

	svc, _, _ := newTestCaseServiceForTest(t, store)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, "room-1", "teacher-1", RoleTeacher, dto.TestCaseUpsertRequest{ID: "tc-1", Input: "in"})
	require.NoError(t, err)

	// Drop the cache entirely; the read must fall back and repopulate.
	mini.FlushAll()

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "in", got.Input)

	require.True(t, mini.Exists("testcase:tc-1"))
}
