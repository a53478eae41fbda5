package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eaglebank/user-service/internal/command"
	"github.com/eaglebank/user-service/internal/repository"
	"github.com/eaglebank/user-service/internal/service"
	"github.com/eaglebank/user-service/shared/cqrs"
	"github.com/eaglebank/user-service/shared/events"
	"github.com/eaglebank/user-service/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache behaves like the Redis view cache: a nil entry is the deleted
// marker and Add only fills empty keys.
type mapCache struct {
	mu    sync.Mutex
	items map[string]*models.User
	hits  int
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string]*models.User)}
}

func (c *mapCache) Get(_ context.Context, key string) (*models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.items[key]
	if ok {
		c.hits++
	}
	return u, ok
}

func (c *mapCache) Set(_ context.Context, key string, value *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *mapCache) Add(_ context.Context, key string, value *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		c.items[key] = value
	}
}

func (c *mapCache) MarkDeleted(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = nil
}

// countingStore records how many times the backing store is read.
type countingStore struct {
	*repository.MemoryUserRepository
	lists int
	finds int
	err   error
}

func (s *countingStore) FindAll(ctx context.Context) ([]models.User, error) {
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	return s.MemoryUserRepository.FindAll(ctx)
}

func (s *countingStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	s.finds++
	if s.err != nil {
		return nil, s.err
	}
	return s.MemoryUserRepository.FindByID(ctx, id)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedUsers() []models.User {
	return []models.User{
		{ID: 1, Email: "test1@gmail.com", FirstName: "Bob", LastName: "Smith", BirthDate: date(1980, 11, 20)},
		{ID: 2, Email: "test2@gmail.com", FirstName: "Alice", LastName: "Jones", BirthDate: date(1995, 6, 9)},
		{ID: 3, Email: "test3@gmail.com", FirstName: "Carol", LastName: "White", BirthDate: date(2000, 1, 5)},
	}
}

func newTestQueryService(cache repository.ViewCache) (*UserQueryService, *countingStore) {
	store := &countingStore{MemoryUserRepository: repository.NewMemoryUserRepository(seedUsers()...)}
	return NewUserQueryService(repository.NewUserReadRepository(store, cache), nil), store
}

func TestListUsers(t *testing.T) {
	svc, _ := newTestQueryService(nil)

	users, err := svc.ListUsers(context.Background(), cqrs.ListUsersQuery{})
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Bob", users[0].FirstName)
	assert.Equal(t, "Carol", users[2].FirstName)
}

func TestListUsers_Empty(t *testing.T) {
	store := repository.NewMemoryUserRepository()
	svc := NewUserQueryService(repository.NewUserReadRepository(store, nil), nil)

	users, err := svc.ListUsers(context.Background(), cqrs.ListUsersQuery{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetUser(t *testing.T) {
	svc, _ := newTestQueryService(nil)

	user, err := svc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)

	_, err = svc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: 2147483647})
	require.Error(t, err)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
	assert.Equal(t, "User not found with Id : '2147483647'", err.Error())
}

func TestGetUser_ServedFromCacheAfterFirstRead(t *testing.T) {
	cache := newMapCache()
	svc, store := newTestQueryService(cache)
	ctx := context.Background()

	_, err := svc.GetUser(ctx, cqrs.GetUserQuery{UserID: 1})
	require.NoError(t, err)
	_, err = svc.GetUser(ctx, cqrs.GetUserQuery{UserID: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, store.finds)
	assert.Equal(t, 1, cache.hits)
}

func TestGetUser_StorageFailure(t *testing.T) {
	svc, store := newTestQueryService(nil)
	store.err = errors.New("connection reset")

	_, err := svc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: 1})
	assert.Equal(t, service.KindStorage, service.KindOf(err))

	_, err = svc.ListUsers(context.Background(), cqrs.ListUsersQuery{})
	assert.Equal(t, service.KindStorage, service.KindOf(err))
}

func TestUsersByBirthDateRange(t *testing.T) {
	svc, _ := newTestQueryService(nil)

	tests := []struct {
		name    string
		from    time.Time
		to      time.Time
		wantIDs []int64
	}{
		{"covers two", date(1993, 9, 30), date(2001, 9, 30), []int64{2, 3}},
		{"covers all", date(1970, 1, 1), date(2010, 1, 1), []int64{1, 2, 3}},
		{"equal bounds", date(1995, 6, 9), date(1995, 6, 9), []int64{}},
		{"bounds on birth dates", date(1980, 11, 20), date(2000, 1, 5), []int64{2}},
		{"before everyone", date(1900, 1, 1), date(1950, 1, 1), []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.UsersByBirthDateRange(context.Background(),
				cqrs.UsersByBirthDateRangeQuery{FromDate: tt.from, ToDate: tt.to})
			require.NoError(t, err)

			ids := make([]int64, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestUsersByBirthDateRange_InvalidRangeSkipsStore(t *testing.T) {
	svc, store := newTestQueryService(nil)

	_, err := svc.UsersByBirthDateRange(context.Background(),
		cqrs.UsersByBirthDateRangeQuery{FromDate: date(2001, 9, 30), ToDate: date(1993, 9, 30)})
	require.Error(t, err)
	assert.Equal(t, service.KindInvalidRange, service.KindOf(err))
	assert.Equal(t, "Argument fromDate should be less then toDate", err.Error())
	assert.Zero(t, store.lists)
}

func TestHandleUserEvent_RepairsCache(t *testing.T) {
	cache := newMapCache()
	svc, store := newTestQueryService(cache)
	ctx := context.Background()

	cache.Set(ctx, "user:view:1", &models.User{ID: 1, FirstName: "Stale"})
	err := svc.HandleUserEvent(ctx, events.Event{Type: events.UserUpdated, Data: events.UserUpdatedEvent{UserID: 1}})
	require.NoError(t, err)
	assert.Equal(t, "Bob", cache.items["user:view:1"].FirstName)

	require.NoError(t, store.DeleteByID(ctx, 2))
	cache.Set(ctx, "user:view:2", &models.User{ID: 2, FirstName: "Alice"})
	err = svc.HandleUserEvent(ctx, events.Event{Type: events.UserDeleted, Data: events.UserDeletedEvent{UserID: 2}})
	require.NoError(t, err)

	_, err = svc.GetUser(ctx, cqrs.GetUserQuery{UserID: 2})
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestHandleUserEvent_RefreshFailureIsReturned(t *testing.T) {
	svc, store := newTestQueryService(newMapCache())
	store.err = errors.New("connection reset")

	err := svc.HandleUserEvent(context.Background(),
		events.Event{Type: events.UserUpdated, Data: events.UserUpdatedEvent{UserID: 1}})
	assert.Error(t, err)
}

func TestHandleUserEvent_IgnoresCreated(t *testing.T) {
	cache := newMapCache()
	svc, _ := newTestQueryService(cache)
	ctx := context.Background()

	_, err := svc.GetUser(ctx, cqrs.GetUserQuery{UserID: 1})
	require.NoError(t, err)

	err = svc.HandleUserEvent(ctx, events.Event{Type: events.UserCreated, Data: events.UserCreatedEvent{UserID: 1}})
	require.NoError(t, err)
	assert.Len(t, cache.items, 1)
}

// pausingStore holds the first FindByID after it has read the store, so a
// write can complete while that read is still in flight.
type pausingStore struct {
	*repository.MemoryUserRepository
	armed  atomic.Bool
	loaded chan struct{}
	resume chan struct{}
}

func newPausingStore(seed ...models.User) *pausingStore {
	s := &pausingStore{
		MemoryUserRepository: repository.NewMemoryUserRepository(seed...),
		loaded:               make(chan struct{}),
		resume:               make(chan struct{}),
	}
	s.armed.Store(true)
	return s
}

func (s *pausingStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.MemoryUserRepository.FindByID(ctx, id)
	if s.armed.CompareAndSwap(true, false) {
		close(s.loaded)
		<-s.resume
	}
	return user, err
}

// readDuringWrite starts GetUser(id) on a cold cache, runs write once the read
// has loaded the old record, then lets the read finish.
func readDuringWrite(t *testing.T, id int64, write func(*command.UserCommandService) error) *UserQueryService {
	t.Helper()
	store := newPausingStore(seedUsers()...)
	readRepo := repository.NewUserReadRepository(store, newMapCache())
	querySvc := NewUserQueryService(readRepo, nil)
	commandSvc := command.NewUserCommandService(store, readRepo, service.NewAgeGate(18), nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := querySvc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: id})
		done <- err
	}()

	<-store.loaded
	require.NoError(t, write(commandSvc))
	close(store.resume)
	require.NoError(t, <-done)
	return querySvc
}

func TestGetUser_DeleteDuringColdReadStaysDeleted(t *testing.T) {
	querySvc := readDuringWrite(t, 1, func(cmds *command.UserCommandService) error {
		return cmds.DeleteUser(context.Background(), cqrs.DeleteUserCommand{UserID: 1})
	})

	user, err := querySvc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: 1})
	require.Error(t, err, "deleted user served as %+v", user)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestGetUser_UpdateDuringColdReadIsNotReverted(t *testing.T) {
	replacement := seedUsers()[0]
	replacement.FirstName = "Robert"

	querySvc := readDuringWrite(t, 1, func(cmds *command.UserCommandService) error {
		_, err := cmds.UpdateUser(context.Background(), cqrs.UpdateUserCommand{UserID: 1, User: replacement})
		return err
	})

	user, err := querySvc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Robert", user.FirstName)
}
