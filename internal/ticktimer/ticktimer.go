// Package ticktimer backs the mapper's gettimer/gettimerms commands.
//
// It is deliberately narrow: it measures wall-clock time since the mapper
// started, the way the source's Mapper.initTimer does. The full in-game
// clock/calendar formatter (tick intervals, calendar triggers) is out of
// scope for this proxy core.
package ticktimer

import "time"

// Timer measures elapsed time since the mapper worker started.
type Timer struct {
	start time.Time
}

// New creates a Timer starting now.
func New() *Timer {
	return &Timer{start: time.Now()}
}

// NewAt creates a Timer starting at start, for callers that already have a
// session start time on hand (the proxy records one per connection) rather
// than wanting the timer to mint its own via time.Now().
func NewAt(start time.Time) *Timer {
	return &Timer{start: start}
}

// Seconds returns whole seconds elapsed since the timer started.
func (t *Timer) Seconds() int64 {
	return int64(time.Since(t.start).Seconds())
}

// Milliseconds returns whole milliseconds elapsed since the timer started.
func (t *Timer) Milliseconds() int64 {
	return time.Since(t.start).Milliseconds()
}
