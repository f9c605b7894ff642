// Package period maps clock readings onto the YYYY-MM budget periods.
//
// All computations use UTC so a record's period and its expense dates always
// agree, whatever the host timezone.
package period

import "time"

const (
	periodLayout = "2006-01"
	dateLayout   = "2006-01-02"
)

// Calculator derives period keys and dates from a clock.
type Calculator struct {
	now func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Calculator {
	c := &Calculator{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the current clock reading in UTC.
func (c *Calculator) Now() time.Time {
	return c.now().UTC()
}

// CurrentPeriod returns the current calendar month as YYYY-MM.
func (c *Calculator) CurrentPeriod() string {
	return PeriodOf(c.Now())
}

// Today returns the current date as YYYY-MM-DD.
func (c *Calculator) Today() string {
	return DateOf(c.Now())
}

// NeedsRollover reports whether a record stored for storedPeriod is stale.
func (c *Calculator) NeedsRollover(storedPeriod string) bool {
	return storedPeriod != c.CurrentPeriod()
}

func PeriodOf(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

func DateOf(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ValidPeriod reports whether s is a well formed YYYY-MM key.
func ValidPeriod(s string) bool {
	t, err := time.Parse(periodLayout, s)
	return err == nil && t.Format(periodLayout) == s
}

// ValidDate reports whether s is a well formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	t, err := time.Parse(dateLayout, s)
	return err == nil && t.Format(dateLayout) == s
}
