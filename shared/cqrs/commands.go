package cqrs

import "github.com/eaglebank/user-service/shared/models"

// CreateUserCommand carries a validated candidate record. Any ID on User is ignored.
type CreateUserCommand struct {
	User models.User
}

// UpdateUserCommand replaces every field of the user identified by UserID.
// The ID embedded in User is never used as the lookup key.
type UpdateUserCommand struct {
	UserID int64
	User   models.User
}

type DeleteUserCommand struct {
	UserID int64
}
