// Package system stamps captured postings with the host's wall clock.
package system

import "time"

// Clock reads the wall clock in UTC.
type Clock struct{}

// New returns a Clock ready to pass to parsers.
func New() *Clock {
	return &Clock{}
}

// Now is time.Now converted to UTC, matching posting.TimeLayout.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
