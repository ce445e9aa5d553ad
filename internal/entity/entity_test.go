package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	cases := []struct {
		name string
		win  ProcessingWindow
		want string
	}{
		{
			"daily",
			ProcessingWindow{Type: WindowDaily, Start: time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)},
			"25356NR",
		},
		{
			"hourly midnight",
			ProcessingWindow{Type: WindowHourly, Start: time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)},
			"25356AH",
		},
		{
			"hourly afternoon",
			ProcessingWindow{Type: WindowHourly, Start: time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)},
			"24002OH",
		},
		{
			"subhourly on the hour",
			ProcessingWindow{Type: WindowSubhourly, Start: time.Date(2025, 12, 22, 6, 0, 0, 0, time.UTC)},
			"25356G0",
		},
		{
			"subhourly half past",
			ProcessingWindow{Type: WindowSubhourly, Start: time.Date(2025, 12, 22, 6, 30, 0, 0, time.UTC)},
			"25356G3",
		},
		{
			"subhourly last quarter",
			ProcessingWindow{Type: WindowSubhourly, Start: time.Date(2025, 12, 22, 23, 45, 0, 0, time.UTC)},
			"25356X4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.win.SessionID())
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		w := ProcessingWindow{Type: WindowHourly, Start: time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)}
		assert.Equal(t, w.SessionID(), w.SessionID())
	})

	t.Run("types never collide for the same instant", func(t *testing.T) {
		start := time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)
		ids := map[string]bool{}
		for _, typ := range []WindowType{WindowDaily, WindowHourly, WindowSubhourly} {
			w := ProcessingWindow{Type: typ, Start: start}
			ids[w.SessionID()] = true
		}
		assert.Len(t, ids, 3)
	})
}

func TestWindowValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		w := ProcessingWindow{
			Type:  WindowHourly,
			Start: time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
		}
		assert.NoError(t, w.Validate())
	})

	t.Run("inverted interval", func(t *testing.T) {
		w := ProcessingWindow{
			Type:  WindowHourly,
			Start: time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
		}
		err := w.Validate()
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("contains is half open", func(t *testing.T) {
		w := ProcessingWindow{
			Type:  WindowHourly,
			Start: time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
		}
		assert.True(t, w.Contains(w.Start))
		assert.False(t, w.Contains(w.End))
	})
}

func TestRunStateMachine(t *testing.T) {
	window := ProcessingWindow{
		Type:  WindowHourly,
		Start: time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
	}

	t.Run("happy path", func(t *testing.T) {
		run := NewProcessingRun(window)
		assert.Equal(t, RunPending, run.Status)

		require.NoError(t, run.StartAcquisition())
		require.NoError(t, run.MarkReady())
		require.NoError(t, run.Start())
		assert.Equal(t, 1, run.AttemptCount)
		assert.NotNil(t, run.StartedAt)

		require.NoError(t, run.Complete())
		assert.Equal(t, RunComplete, run.Status)
		assert.NotNil(t, run.CompletedAt)
	})

	t.Run("cannot start before ready", func(t *testing.T) {
		run := NewProcessingRun(window)
		assert.ErrorIs(t, run.Start(), ErrNotReady)
	})

	t.Run("cannot complete before running", func(t *testing.T) {
		run := NewProcessingRun(window)
		require.NoError(t, run.StartAcquisition())
		assert.ErrorIs(t, run.Complete(), ErrNotRunning)
	})

	t.Run("acquisition failure", func(t *testing.T) {
		run := NewProcessingRun(window)
		require.NoError(t, run.StartAcquisition())
		require.NoError(t, run.Fail("mandatory product orbit unavailable"))
		assert.Equal(t, RunFailed, run.Status)
		require.NotNil(t, run.FailureReason)
		assert.Contains(t, *run.FailureReason, "orbit")
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		run := NewProcessingRun(window)
		require.NoError(t, run.StartAcquisition())
		require.NoError(t, run.MarkReady())
		require.NoError(t, run.Start())
		require.NoError(t, run.Complete())

		assert.ErrorIs(t, run.StartAcquisition(), ErrAlreadyTerminal)
		assert.ErrorIs(t, run.Fail("late"), ErrAlreadyTerminal)
	})

	t.Run("reset only from failed", func(t *testing.T) {
		run := NewProcessingRun(window)
		assert.ErrorIs(t, run.Reset(), ErrInvalidTransition)

		require.NoError(t, run.StartAcquisition())
		require.NoError(t, run.MarkReady())
		require.NoError(t, run.Start())
		require.NoError(t, run.Fail("engine exit 1"))

		require.NoError(t, run.Reset())
		assert.Equal(t, RunPending, run.Status)
		assert.Nil(t, run.FailureReason)
		assert.Equal(t, 1, run.AttemptCount)

		require.NoError(t, run.StartAcquisition())
		require.NoError(t, run.MarkReady())
		require.NoError(t, run.Start())
		assert.Equal(t, 2, run.AttemptCount)
	})
}

func TestProduct(t *testing.T) {
	source := ProductSource{
		Provider:     "CDDIS",
		Tier:         TierRapid,
		Protocol:     "https",
		Host:         "cddis.nasa.gov",
		PathTemplate: "/archive/gnss/products/{wwww}/",
	}

	t.Run("mark available", func(t *testing.T) {
		p := NewProduct("24002CH", CategoryOrbit, true)
		require.NoError(t, p.MarkAvailable(source, "/data/products/24002CH/orbit.sp3", 1024, "abc123"))
		assert.True(t, p.IsAvailable())
		require.NotNil(t, p.Tier)
		assert.Equal(t, TierRapid, *p.Tier)
	})

	t.Run("resolution is terminal", func(t *testing.T) {
		p := NewProduct("24002CH", CategoryOrbit, true)
		require.NoError(t, p.MarkUnavailable())
		assert.ErrorIs(t, p.MarkAvailable(source, "/tmp/x", 1, ""), ErrProductResolved)
		assert.ErrorIs(t, p.MarkUnavailable(), ErrProductResolved)
	})

	t.Run("empty artifact rejected", func(t *testing.T) {
		p := NewProduct("24002CH", CategoryClock, true)
		assert.ErrorIs(t, p.MarkAvailable(source, "", 0, ""), ErrEmptyArtifact)
		assert.Equal(t, ProductPending, p.Availability)
	})
}

func TestSourceValidate(t *testing.T) {
	valid := ProductSource{
		Provider:     "IGS",
		Tier:         TierFinal,
		Protocol:     "ftp",
		Host:         "ftp.igs.org",
		PathTemplate: "/pub/product/{wwww}/",
	}
	assert.NoError(t, valid.Validate())

	t.Run("bad protocol", func(t *testing.T) {
		s := valid
		s.Protocol = "gopher"
		assert.True(t, IsConfigError(s.Validate()))
	})

	t.Run("bad tier", func(t *testing.T) {
		s := valid
		s.Tier = "best"
		assert.True(t, IsConfigError(s.Validate()))
	})

	t.Run("missing host", func(t *testing.T) {
		s := valid
		s.Host = ""
		assert.True(t, IsConfigError(s.Validate()))
	})
}
