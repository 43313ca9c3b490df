package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects how often the update cycle repeats.
type Mode int

const (
	ModeNone Mode = iota
	ModeDaily
	ModeHourly
	ModeMinutely
)

func (m *Mode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "none", "once":
		*m = ModeNone
	case "daily":
		*m = ModeDaily
	case "hourly":
		*m = ModeHourly
	case "minutely", "min":
		*m = ModeMinutely
	default:
		return errors.New("invalid schedule mode")
	}
	return nil
}

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDaily:
		return "daily"
	case ModeHourly:
		return "hourly"
	case ModeMinutely:
		return "minutely"
	default:
		return fmt.Sprintf("unknown<%d>", int(m))
	}
}

// Interval is the fixed delay between two runs of the same schedule.
// ModeNone and unrecognized values map to 0, which the scheduler rejects.
func (m Mode) Interval() time.Duration {
	switch m {
	case ModeDaily:
		return 24 * time.Hour
	case ModeHourly:
		return time.Hour
	case ModeMinutely:
		return time.Minute
	default:
		return 0
	}
}
