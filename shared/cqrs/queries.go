package cqrs

import "time"

// ---------- User queries ----------

// GetUserQuery fetches a single user by ID.
type GetUserQuery struct {
	UserID int64
}

// ListUsersQuery fetches every stored user.
type ListUsersQuery struct{}

// UsersByBirthDateRangeQuery fetches users born strictly between FromDate and ToDate.
type UsersByBirthDateRangeQuery struct {
	FromDate time.Time
	ToDate   time.Time
}
