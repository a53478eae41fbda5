package repository

import (
	"context"
	"strconv"

	"github.com/eaglebank/user-service/shared/models"
)

const userViewKeyPrefix = "user:view:"

// ViewCache is the subset of shared/redis.ViewCache used for user records.
// Get returns (nil, true) for a key marked deleted.
type ViewCache interface {
	Get(ctx context.Context, key string) (*models.User, bool)
	Set(ctx context.Context, key string, value *models.User)
	Add(ctx context.Context, key string, value *models.User)
	MarkDeleted(ctx context.Context, key string)
}

// UserReadRepository serves reads from the view cache first and falls back to
// the underlying store. A nil cache disables caching.
//
// Writers overwrite entries with Set or MarkDeleted; readers only fill empty
// keys with Add. A read that raced a write therefore cannot put back the
// record that write replaced or removed.
type UserReadRepository struct {
	store UserRepository
	cache ViewCache
}

func NewUserReadRepository(store UserRepository, cache ViewCache) *UserReadRepository {
	return &UserReadRepository{store: store, cache: cache}
}

func userViewKey(id int64) string {
	return userViewKeyPrefix + strconv.FormatInt(id, 10)
}

// GetByID returns (nil, nil) when the user does not exist.
func (r *UserReadRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if r.cache != nil {
		if user, ok := r.cache.Get(ctx, userViewKey(id)); ok {
			return user, nil
		}
	}

	user, err := r.store.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Add(ctx, userViewKey(id), user)
	}
	return user, nil
}

// FindAll always reads the store; lists are not cached.
func (r *UserReadRepository) FindAll(ctx context.Context) ([]models.User, error) {
	return r.store.FindAll(ctx)
}

// CacheUser stores the record just written by the command service.
func (r *UserReadRepository) CacheUser(ctx context.Context, user *models.User) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, userViewKey(user.ID), user)
}

// MarkUserDeleted records that the user is gone, so reads answer NotFound
// without touching the store.
func (r *UserReadRepository) MarkUserDeleted(ctx context.Context, id int64) {
	if r.cache == nil {
		return
	}
	r.cache.MarkDeleted(ctx, userViewKey(id))
}

// RefreshUser reloads the user from the store and overwrites the cached
// entry, or marks it deleted when the store no longer has it.
func (r *UserReadRepository) RefreshUser(ctx context.Context, id int64) error {
	if r.cache == nil {
		return nil
	}
	user, err := r.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		r.cache.MarkDeleted(ctx, userViewKey(id))
		return nil
	}
	r.cache.Set(ctx, userViewKey(id), user)
	return nil
}
