package gnsstime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMJD(t *testing.T) {
	t.Run("known date", func(t *testing.T) {
		// January 1, 2000 00:00:00 UTC = MJD 51544
		mjd := MJD(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.InDelta(t, 51544.0, mjd, 0.001)
	})

	t.Run("gps epoch", func(t *testing.T) {
		mjd := MJD(time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC))
		assert.InDelta(t, GPSEpochMJD, mjd, 0.001)
	})

	t.Run("roundtrip", func(t *testing.T) {
		orig := time.Date(2024, 6, 15, 12, 30, 45, 0, time.UTC)
		got := FromMJD(MJD(orig))
		assert.Equal(t, orig, got)
	})
}

func TestGPSWeek(t *testing.T) {
	t.Run("epoch is week zero", func(t *testing.T) {
		week, dow := GPSWeek(time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, 0, week)
		assert.Equal(t, 0, dow)
	})

	t.Run("known date", func(t *testing.T) {
		// Jan 1, 2024 is GPS week 2295, Monday (dow 1)
		week, dow := GPSWeek(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, 2295, week)
		assert.Equal(t, 1, dow)
	})

	t.Run("roundtrip", func(t *testing.T) {
		got := FromGPSWeek(2295, 1, 0)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)
	})
}

func TestDOY(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want int
	}{
		{"january first", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"leap year end", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 366},
		{"non-leap year end", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), 365},
		{"leap day", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 60},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DOY(tc.in))
		})
	}

	t.Run("from doy roundtrip across leap day", func(t *testing.T) {
		got := FromDOY(2024, 61) // day after Feb 29
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
	})
}

func TestHourAlpha(t *testing.T) {
	t.Run("bounds", func(t *testing.T) {
		a, err := HourAlpha(0)
		require.NoError(t, err)
		assert.Equal(t, "a", a)

		x, err := HourAlpha(23)
		require.NoError(t, err)
		assert.Equal(t, "x", x)

		_, err = HourAlpha(24)
		assert.Error(t, err)
	})

	t.Run("roundtrip and case insensitive", func(t *testing.T) {
		for hour := 0; hour < 24; hour++ {
			a, err := HourAlpha(hour)
			require.NoError(t, err)

			got, err := AlphaHour(a)
			require.NoError(t, err)
			assert.Equal(t, hour, got)
		}

		got, err := AlphaHour("C")
		require.NoError(t, err)
		assert.Equal(t, 2, got)
	})
}

func TestFormats(t *testing.T) {
	d := time.Date(2025, 12, 22, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, "25356", YYDDD(d))
	assert.Equal(t, "2025356", YYYYDDD(d))
}
