package service

import "time"

// AgeGate decides whether a birth date is old enough to register.
// The minimum age is fixed at construction and safe for concurrent use.
type AgeGate struct {
	minimumAge int
	now        func() time.Time
}

type AgeGateOption func(*AgeGate)

// WithClock overrides the current-time source. Its result is read as a UTC
// calendar date.
func WithClock(now func() time.Time) AgeGateOption {
	return func(g *AgeGate) {
		g.now = now
	}
}

func NewAgeGate(minimumAge int, opts ...AgeGateOption) *AgeGate {
	g := &AgeGate{minimumAge: minimumAge, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *AgeGate) MinimumAge() int {
	return g.minimumAge
}

// IsEligible compares against today's UTC date, the same calendar birth dates
// are stored in.
func (g *AgeGate) IsEligible(birthDate time.Time) bool {
	return IsEligible(birthDate, g.minimumAge, g.now().UTC())
}

// IsEligible reports whether at least minimumAge whole years have elapsed
// between birthDate and now.
func IsEligible(birthDate time.Time, minimumAge int, now time.Time) bool {
	return YearsBetween(birthDate, now) >= minimumAge
}

// YearsBetween counts whole calendar years from start to end. A birthday not
// yet reached in end's year does not count.
func YearsBetween(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()

	years := ey - sy
	if em < sm || (em == sm && ed < sd) {
		years--
	}
	return years
}
