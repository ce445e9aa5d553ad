package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   30 * time.Second,
		MaxDelay:    10 * time.Minute,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{5, 480 * time.Second},
		{6, 10 * time.Minute},
		{10, 10 * time.Minute},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, p.Delay(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestDelayCap(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: 90 * time.Second}
	assert.Equal(t, time.Minute, p.Delay(1))
	assert.Equal(t, 90*time.Second, p.Delay(2))
	assert.Equal(t, 90*time.Second, p.Delay(3))
}

func TestValidate(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	cases := []struct {
		name string
		p    Policy
	}{
		{"zero attempts", Policy{MaxAttempts: 0, BaseDelay: time.Second, MaxDelay: time.Minute}},
		{"zero base", Policy{MaxAttempts: 3, BaseDelay: 0, MaxDelay: time.Minute}},
		{"cap below base", Policy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Second}},
		{"jitter above one", Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 1.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.p.Validate())
		})
	}
}

func TestSleepCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Sleep(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepShortDelay(t *testing.T) {
	p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Jitter: 0.5}
	require.NoError(t, p.Sleep(context.Background(), 1))
}
