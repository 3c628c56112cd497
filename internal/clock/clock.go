// Package clock resolves "today" in the organization's timezone.
package clock

import "time"

type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// Fixed returns a clock frozen at t, for tests.
func Fixed(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// Today is the local calendar date as midnight UTC, which is how DATE columns
// are bound and scanned.
func (c *Clock) Today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *Clock) Yesterday() time.Time {
	return c.Today().AddDate(0, 0, -1)
}

// SameDay compares calendar dates regardless of location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
