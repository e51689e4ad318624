package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalendar(t *testing.T) {
	assert.Equal(t, "enero", testCalendar.Name(time.January))
	assert.Equal(t, "diciembre", testCalendar.Name(time.December))
	assert.Equal(t, "", testCalendar.Name(time.Month(13)))

	m, ok := testCalendar.Month(" Marzo ")
	assert.True(t, ok)
	assert.Equal(t, time.March, m)

	_, ok = testCalendar.Month("march")
	assert.False(t, ok)
}
