package command

import (
	"context"
	"time"

	"github.com/eaglebank/user-service/internal/repository"
	"github.com/eaglebank/user-service/internal/service"
	"github.com/eaglebank/user-service/shared/cqrs"
	"github.com/eaglebank/user-service/shared/events"
	"github.com/eaglebank/user-service/shared/models"
	"go.uber.org/zap"
)

// EventPublisher is satisfied by events.Publisher and events.Discard.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AgeChecker is satisfied by service.AgeGate.
type AgeChecker interface {
	IsEligible(birthDate time.Time) bool
}

// UserCommandService writes users through the persistence collaborator and
// keeps the read cache and the user event stream up to date.
type UserCommandService struct {
	store     repository.UserRepository
	readRepo  *repository.UserReadRepository
	ageGate   AgeChecker
	publisher EventPublisher
	logger    *zap.Logger
}

func NewUserCommandService(
	store repository.UserRepository,
	readRepo *repository.UserReadRepository,
	ageGate AgeChecker,
	publisher EventPublisher,
	logger *zap.Logger,
) *UserCommandService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserCommandService{
		store:     store,
		readRepo:  readRepo,
		ageGate:   ageGate,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateUser rejects candidates younger than the configured minimum age
// before touching the store.
func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (*models.User, error) {
	if !s.ageGate.IsEligible(cmd.User.BirthDate) {
		return nil, service.InvalidAge()
	}

	candidate := cmd.User
	candidate.ID = 0
	user, err := s.store.Save(ctx, &candidate)
	if err != nil {
		return nil, service.Storage(err)
	}

	s.readRepo.CacheUser(ctx, user)
	s.publish(ctx, events.UserCreated, user.ID, events.UserCreatedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   fullName(user),
	})
	return user, nil
}

// UpdateUser replaces every field except the id. The age gate is not
// applied here, even when the birth date changes.
func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.User, error) {
	existing, err := s.store.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, service.Storage(err)
	}
	if existing == nil {
		return nil, service.UserNotFound(cmd.UserID)
	}

	existing.Email = cmd.User.Email
	existing.FirstName = cmd.User.FirstName
	existing.LastName = cmd.User.LastName
	existing.BirthDate = cmd.User.BirthDate
	existing.Address = cmd.User.Address
	existing.PhoneNumber = cmd.User.PhoneNumber

	user, err := s.store.Save(ctx, existing)
	if err != nil {
		return nil, service.Storage(err)
	}

	s.readRepo.CacheUser(ctx, user)
	s.publish(ctx, events.UserUpdated, user.ID, events.UserUpdatedEvent{
		UserID: user.ID,
		Email:  user.Email,
		Name:   fullName(user),
	})
	return user, nil
}

func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) error {
	existing, err := s.store.FindByID(ctx, cmd.UserID)
	if err != nil {
		return service.Storage(err)
	}
	if existing == nil {
		return service.UserNotFound(cmd.UserID)
	}

	if err := s.store.DeleteByID(ctx, cmd.UserID); err != nil {
		return service.Storage(err)
	}

	s.readRepo.MarkUserDeleted(ctx, cmd.UserID)
	s.publish(ctx, events.UserDeleted, cmd.UserID, events.UserDeletedEvent{UserID: cmd.UserID})
	return nil
}

// publish never fails the calling operation.
func (s *UserCommandService) publish(ctx context.Context, eventType string, userID int64, data any) {
	if err := s.publisher.Publish(ctx, events.UserEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish user event",
			zap.String("event", eventType), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func fullName(u *models.User) string {
	return u.FirstName + " " + u.LastName
}
