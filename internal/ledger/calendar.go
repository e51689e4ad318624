package ledger

import (
	"strings"
	"time"
)

// Calendar translates between month numbers and the localized month names
// shown to users and written into reports.
type Calendar struct {
	names []string
	index map[string]time.Month
}

// NewCalendar builds a Calendar from twelve month names, January first.
// Lookups by name ignore case and surrounding whitespace.
func NewCalendar(names []string) Calendar {
	c := Calendar{
		names: append([]string(nil), names...),
		index: make(map[string]time.Month, len(names)),
	}
	for i, name := range names {
		c.index[strings.ToLower(strings.TrimSpace(name))] = time.Month(i + 1)
	}
	return c
}

// Name returns the month name, or "" for an out-of-range month.
func (c Calendar) Name(m time.Month) string {
	if m < time.January || int(m) > len(c.names) {
		return ""
	}
	return c.names[m-1]
}

// Month returns the month number for a name.
func (c Calendar) Month(name string) (time.Month, bool) {
	m, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}
