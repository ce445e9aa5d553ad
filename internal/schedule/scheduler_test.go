package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgisalene/gnss-rt/internal/entity"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecurringHourly(t *testing.T) {
	s := New()
	s.Now = fixedClock(time.Date(2024, 1, 2, 5, 10, 0, 0, time.UTC))

	w, err := s.Recurring(entity.WindowHourly, 3*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, entity.WindowHourly, w.Type)
	assert.NoError(t, w.Validate())
}

func TestRecurringDaily(t *testing.T) {
	s := New()
	s.Now = fixedClock(time.Date(2024, 1, 2, 5, 10, 0, 0, time.UTC))

	w, err := s.Recurring(entity.WindowDaily, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), w.End)
}

func TestRecurringSubhourly(t *testing.T) {
	s := New()
	s.Now = fixedClock(time.Date(2024, 1, 2, 5, 58, 0, 0, time.UTC))

	w, err := s.Recurring(entity.WindowSubhourly, 30*time.Minute)
	require.NoError(t, err)

	// 05:58 - 30m = 05:28, floored to 05:15
	assert.Equal(t, time.Date(2024, 1, 2, 5, 15, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 5, 30, 0, 0, time.UTC), w.End)
}

func TestRecurringRejectsNegativeLatency(t *testing.T) {
	s := New()
	_, err := s.Recurring(entity.WindowHourly, -time.Hour)
	require.Error(t, err)
	assert.True(t, entity.IsConfigError(err))
}

func TestRangePartition(t *testing.T) {
	s := New()

	start := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)

	windows, err := s.Range(entity.WindowHourly, start, end)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	for i, w := range windows {
		assert.Equal(t, start.Add(time.Duration(i)*time.Hour), w.Start)
		assert.Equal(t, w.Start.Add(time.Hour), w.End)
	}

	t.Run("oldest first", func(t *testing.T) {
		for i := 1; i < len(windows); i++ {
			assert.True(t, windows[i-1].Start.Before(windows[i].Start))
		}
	})
}

func TestRangePartialTail(t *testing.T) {
	s := New()

	start := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 4, 30, 0, 0, time.UTC)

	windows, err := s.Range(entity.WindowHourly, start, end)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), windows[2].Start)
	assert.Equal(t, time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC), windows[2].End)
}

func TestRangeFloorsUnalignedStart(t *testing.T) {
	s := New()

	start := time.Date(2024, 1, 2, 2, 40, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)

	windows, err := s.Range(entity.WindowHourly, start, end)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC), windows[0].Start)
}

func TestRangeRejectsInverted(t *testing.T) {
	s := New()

	start := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)

	_, err := s.Range(entity.WindowHourly, start, end)
	require.Error(t, err)
	assert.True(t, entity.IsConfigError(err))

	_, err = s.Range(entity.WindowHourly, start, start)
	require.Error(t, err)
	assert.True(t, entity.IsConfigError(err))
}

func TestRangeDaily(t *testing.T) {
	s := New()

	start := time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	windows, err := s.Range(entity.WindowDaily, start, end)
	require.NoError(t, err)
	require.Len(t, windows, 4)
	// Leap day included
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), windows[2].Start)
}
