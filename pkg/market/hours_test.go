package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInRegularHours(t *testing.T) {
	loc := ExchangeLocation()
	friday := func(h, m int) time.Time { return time.Date(2025, 3, 14, h, m, 0, 0, loc) }

	assert.False(t, InRegularHours(friday(9, 29), loc))
	assert.True(t, InRegularHours(friday(9, 30), loc))
	assert.True(t, InRegularHours(friday(15, 59), loc))
	assert.False(t, InRegularHours(friday(16, 0), loc))
	assert.True(t, InRegularHours(friday(13, 30).UTC(), loc), "UTC input is converted")
	assert.False(t, InRegularHours(time.Date(2025, 3, 15, 12, 0, 0, 0, loc), loc), "saturday")
}
