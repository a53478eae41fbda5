package service

import (
	"time"

	"github.com/eaglebank/user-service/shared/models"
)

// ValidateRange rejects intervals whose start is after their end.
// Equal bounds are accepted and simply match nothing.
func ValidateRange(fromDate, toDate time.Time) error {
	if models.DateOf(fromDate).After(models.DateOf(toDate)) {
		return InvalidRange()
	}
	return nil
}

// FilterByBirthDate keeps users born strictly after fromDate and strictly
// before toDate. Input order is preserved.
func FilterByBirthDate(users []models.User, fromDate, toDate time.Time) []models.User {
	from := models.DateOf(fromDate)
	to := models.DateOf(toDate)

	matched := make([]models.User, 0, len(users))
	for _, u := range users {
		birth := models.DateOf(u.BirthDate)
		if birth.After(from) && birth.Before(to) {
			matched = append(matched, u)
		}
	}
	return matched
}
