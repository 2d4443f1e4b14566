package host

import "time"

const HoursPerDay = 24

// ManualClock is advanced explicitly, one in-game hour at a time.
type ManualClock struct {
	day, hour int
	started   time.Time
	now       func() time.Time
}

func NewManualClock(day, hour int) *ManualClock {
	return &ManualClock{day: day, hour: hour, started: time.Now(), now: time.Now}
}

func (c *ManualClock) Day() int  { return c.day }
func (c *ManualClock) Hour() int { return c.hour }

func (c *ManualClock) SessionTime() time.Duration {
	return c.now().Sub(c.started)
}

// AdvanceHour moves the clock forward and reports whether a new day began.
func (c *ManualClock) AdvanceHour() bool {
	c.hour++
	if c.hour < HoursPerDay {
		return false
	}
	c.hour = 0
	c.day++
	return true
}

// SetTime jumps to a day and hour. Going back in days is ignored.
func (c *ManualClock) SetTime(day, hour int) {
	if day >= c.day {
		c.day = day
	}
	c.hour = hour % HoursPerDay
}
