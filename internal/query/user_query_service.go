package query

import (
	"context"

	"github.com/eaglebank/user-service/internal/repository"
	"github.com/eaglebank/user-service/internal/service"
	"github.com/eaglebank/user-service/shared/cqrs"
	"github.com/eaglebank/user-service/shared/events"
	"github.com/eaglebank/user-service/shared/models"
	"go.uber.org/zap"
)

// UserQueryService reads users through the cached read repository.
type UserQueryService struct {
	readRepo *repository.UserReadRepository
	logger   *zap.Logger
}

func NewUserQueryService(readRepo *repository.UserReadRepository, logger *zap.Logger) *UserQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserQueryService{readRepo: readRepo, logger: logger}
}

func (s *UserQueryService) ListUsers(ctx context.Context, _ cqrs.ListUsersQuery) ([]models.User, error) {
	users, err := s.readRepo.FindAll(ctx)
	if err != nil {
		return nil, service.Storage(err)
	}
	return users, nil
}

func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.User, error) {
	user, err := s.readRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, service.Storage(err)
	}
	if user == nil {
		return nil, service.UserNotFound(q.UserID)
	}
	return user, nil
}

// UsersByBirthDateRange validates the interval before loading any users.
func (s *UserQueryService) UsersByBirthDateRange(ctx context.Context, q cqrs.UsersByBirthDateRangeQuery) ([]models.User, error) {
	if err := service.ValidateRange(q.FromDate, q.ToDate); err != nil {
		return nil, err
	}

	users, err := s.ListUsers(ctx, cqrs.ListUsersQuery{})
	if err != nil {
		return nil, err
	}
	return service.FilterByBirthDate(users, q.FromDate, q.ToDate), nil
}

// HandleUserEvent is the Redis stream subscriber handler. It repairs cached
// records changed by any replica: updates are reloaded from the store and
// deletions are marked, never simply evicted.
func (s *UserQueryService) HandleUserEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.UserUpdated:
		var data events.UserUpdatedEvent
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		s.logger.Debug("refreshing cached user", zap.String("event", event.Type), zap.Int64("user_id", data.UserID))
		return s.readRepo.RefreshUser(ctx, data.UserID)
	case events.UserDeleted:
		var data events.UserDeletedEvent
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		s.logger.Debug("marking cached user deleted", zap.String("event", event.Type), zap.Int64("user_id", data.UserID))
		s.readRepo.MarkUserDeleted(ctx, data.UserID)
	}
	return nil
}
