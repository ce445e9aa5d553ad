package entity

import (
	"time"

	"github.com/georgisalene/gnss-rt/internal/gnsstime"
)

// WindowType is the granularity of a processing window.
type WindowType string

const (
	WindowDaily     WindowType = "daily"
	WindowHourly    WindowType = "hourly"
	WindowSubhourly WindowType = "subhourly"
)

// SubhourlyStep is the fixed sub-hour increment for subhourly windows.
const SubhourlyStep = 15 * time.Minute

// Duration returns the length of one window of this type.
func (t WindowType) Duration() time.Duration {
	switch t {
	case WindowDaily:
		return 24 * time.Hour
	case WindowHourly:
		return time.Hour
	case WindowSubhourly:
		return SubhourlyStep
	default:
		return 0
	}
}

// Valid reports whether the window type is known.
func (t WindowType) Valid() bool {
	return t.Duration() > 0
}

// ParseWindowType validates a window type string.
func ParseWindowType(s string) (WindowType, error) {
	t := WindowType(s)
	if !t.Valid() {
		return "", NewConfigError("unknown window type %q", s)
	}
	return t, nil
}

func (t WindowType) String() string { return string(t) }

// ProcessingWindow is a half-open [Start, End) interval due for processing.
// Windows are immutable once computed.
type ProcessingWindow struct {
	Type    WindowType
	Start   time.Time
	End     time.Time
	Latency time.Duration
}

// Quarter minute marks map to single session characters; the gaps match the
// legacy Bernese session naming that this scheme stays compatible with.
var quarterChars = map[int]byte{0: '0', 15: '1', 30: '3', 45: '4'}

// SessionID derives the deterministic session identifier from the window
// start and type. Daily windows end in the fixed "NR" session tag, hourly
// windows in the uppercase hour character plus 'H', subhourly windows in the
// hour character plus the quarter digit. The three suffixes cannot collide.
func (w ProcessingWindow) SessionID() string {
	start := w.Start.UTC()
	base := gnsstime.YYDDD(start)

	switch w.Type {
	case WindowHourly:
		ha, _ := gnsstime.HourAlpha(start.Hour())
		return base + upper(ha) + "H"
	case WindowSubhourly:
		ha, _ := gnsstime.HourAlpha(start.Hour())
		q, ok := quarterChars[start.Minute()]
		if !ok {
			q = '0'
		}
		return base + upper(ha) + string(q)
	default:
		return base + "NR"
	}
}

func upper(s string) string {
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0] - ('a' - 'A'))
	}
	return s
}

// Validate checks the interval invariants.
func (w ProcessingWindow) Validate() error {
	if !w.Type.Valid() {
		return NewConfigError("unknown window type %q", w.Type)
	}
	if !w.End.After(w.Start) {
		return NewConfigError("window end %s is not after start %s", w.End, w.Start)
	}
	return nil
}

// Contains reports whether ts falls inside the half-open interval.
func (w ProcessingWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}
