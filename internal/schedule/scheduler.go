// Package schedule computes the processing windows due for a run of the
// pipeline, either recurring (latency behind wall clock) or over an explicit
// range.
package schedule

import (
	"time"

	"github.com/georgisalene/gnss-rt/internal/entity"
)

// Scheduler produces ordered sequences of processing windows. Windows come
// out chronologically ascending, oldest first, so backlog is worked before
// the newest window.
type Scheduler struct {
	// Now is the clock; tests substitute it.
	Now func() time.Time
}

func New() *Scheduler {
	return &Scheduler{Now: time.Now}
}

// Recurring computes the single window due now for the given granularity:
// the window start is now minus latency, floored to the granularity
// boundary, and the window spans one granularity unit from there.
func (s *Scheduler) Recurring(windowType entity.WindowType, latency time.Duration) (entity.ProcessingWindow, error) {
	if !windowType.Valid() {
		return entity.ProcessingWindow{}, entity.NewConfigError("unknown window type %q", windowType)
	}
	if latency < 0 {
		return entity.ProcessingWindow{}, entity.NewConfigError("latency cannot be negative, got %s", latency)
	}

	target := s.Now().UTC().Add(-latency)
	start := floor(target, windowType)

	return entity.ProcessingWindow{
		Type:    windowType,
		Start:   start,
		End:     start.Add(windowType.Duration()),
		Latency: latency,
	}, nil
}

// Range partitions [start, end) into consecutive windows of the granularity,
// oldest first. The first window is floored to the granularity boundary; a
// partial tail still gets a window covering it. An empty or inverted range
// is a configuration error.
func (s *Scheduler) Range(windowType entity.WindowType, start, end time.Time) ([]entity.ProcessingWindow, error) {
	if !windowType.Valid() {
		return nil, entity.NewConfigError("unknown window type %q", windowType)
	}
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, entity.NewConfigError("range end %s is not after start %s", end, start)
	}

	unit := windowType.Duration()
	cursor := floor(start, windowType)

	var windows []entity.ProcessingWindow
	for cursor.Before(end) {
		windows = append(windows, entity.ProcessingWindow{
			Type:  windowType,
			Start: cursor,
			End:   cursor.Add(unit),
		})
		cursor = cursor.Add(unit)
	}
	return windows, nil
}

// floor truncates t to the granularity boundary: midnight for daily, the
// hour for hourly, the quarter hour for subhourly.
func floor(t time.Time, windowType entity.WindowType) time.Time {
	t = t.UTC()
	switch windowType {
	case entity.WindowDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case entity.WindowHourly:
		return t.Truncate(time.Hour)
	default:
		return t.Truncate(entity.SubhourlyStep)
	}
}
