// Package system provides the wall clock used outside tests.
package system

import (
	"time"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Clock implements discovery.Clock using time.Now.
type Clock struct{}

var _ discovery.Clock = Clock{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a Clock frozen at one instant.
type Fixed time.Time

// Now implements discovery.Clock.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}
