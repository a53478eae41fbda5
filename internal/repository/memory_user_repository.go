package repository

import (
	"context"
	"sync"

	"github.com/eaglebank/user-service/shared/models"
)

// MemoryUserRepository keeps users in process memory in insertion order.
// Used for STORAGE_BACKEND=memory and in tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  []models.User
	nextID int64
}

var _ UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository(seed ...models.User) *MemoryUserRepository {
	repo := &MemoryUserRepository{
		users:  make([]models.User, 0, len(seed)),
		nextID: 1,
	}

	var maxID int64
	for _, user := range seed {
		repo.users = append(repo.users, user)
		if user.ID > maxID {
			maxID = user.ID
		}
	}
	repo.nextID = maxID + 1
	return repo
}

func (r *MemoryUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, len(r.users))
	copy(users, r.users)
	return users, nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		user := r.users[i]
		return &user, nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *user
	if saved.ID == 0 {
		saved.ID = r.nextID
		r.nextID++
		r.users = append(r.users, saved)
		return &saved, nil
	}

	if i := r.indexOf(saved.ID); i >= 0 {
		r.users[i] = saved
	} else {
		r.users = append(r.users, saved)
		if saved.ID >= r.nextID {
			r.nextID = saved.ID + 1
		}
	}
	return &saved, nil
}

func (r *MemoryUserRepository) DeleteByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(id); i >= 0 {
		r.users = append(r.users[:i], r.users[i+1:]...)
	}
	return nil
}

// indexOf must be called with mu held.
func (r *MemoryUserRepository) indexOf(id int64) int {
	for i, user := range r.users {
		if user.ID == id {
			return i
		}
	}
	return -1
}
