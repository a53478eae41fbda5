package models

import "time"

// DateLayout is the calendar-date wire format used for birth dates.
const DateLayout = "2006-01-02"

// User is the persisted user record. Field-level constraints (email format,
// name character set, past birth date) are checked before a User is built.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	BirthDate   time.Time `json:"birthDate"`
	Address     string    `json:"address,omitempty"`
	PhoneNumber int64     `json:"phoneNumber"`
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a yyyy-MM-dd string into a UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
