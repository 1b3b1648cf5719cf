package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	result := c.Now()
	after := time.Now()

	assert.False(t, result.Before(before), "RealClock.Now() should not be before the call")
	assert.False(t, result.After(after), "RealClock.Now() should not be after the call")
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	initial := time.Date(2018, 10, 28, 20, 0, 0, 0, time.UTC)
	c := NewMockClock(initial)
	assert.Equal(t, initial, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, time.Date(2018, 10, 28, 21, 30, 0, 0, time.UTC), c.Now())

	c.Advance(-30 * time.Minute)
	assert.Equal(t, time.Date(2018, 10, 28, 21, 0, 0, 0, time.UTC), c.Now())

	later := time.Date(2018, 10, 29, 0, 5, 0, 0, time.UTC)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestMockClock_ConcurrentAccess(t *testing.T) {
	c := NewMockClock(time.Date(2018, 10, 28, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Advance(time.Minute)
		}()
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2018, 10, 28, 0, 50, 0, 0, time.UTC), c.Now())
}

func TestIn(t *testing.T) {
	c := NewMockClock(time.Date(2018, 10, 29, 4, 0, 0, 0, time.UTC))
	pst := time.FixedZone("PST", -8*60*60)

	local := In(c, pst)
	assert.Equal(t, 20, local.Hour())
	assert.Equal(t, 28, local.Day())

	assert.Equal(t, c.Now(), In(c, nil))
}
