package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// WorkingHours is a user's configured daily working window in local "HH:MM"
// times. It is persisted as a single "HH:MM-HH:MM" setting value.
type WorkingHours struct {
	Start string
	End   string
}

// ParseWorkingHours parses the persisted "HH:MM-HH:MM" form.
func ParseWorkingHours(value string) (WorkingHours, error) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return WorkingHours{}, fmt.Errorf("working hours %q: want \"HH:MM-HH:MM\"", value)
	}
	h := WorkingHours{Start: strings.TrimSpace(parts[0]), End: strings.TrimSpace(parts[1])}
	if _, err := parseHHMM(h.Start); err != nil {
		return WorkingHours{}, err
	}
	if _, err := parseHHMM(h.End); err != nil {
		return WorkingHours{}, err
	}
	return h, nil
}

func (h WorkingHours) String() string {
	return h.Start + "-" + h.End
}

func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("time %q: want \"HH:MM\"", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", s, err)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return hh*60 + mm, nil
}

// TrackingWindow is the padded daily interval during which geofence tracking
// is active, in minutes since local midnight. Its bounds may extend past the
// day in either direction.
type TrackingWindow struct {
	startMin int
	endMin   int
}

// Window derives the tracking window from the working hours, padded on both
// sides. An unparsable time never reaches here; ParseWorkingHours validates.
func (h WorkingHours) Window(pad time.Duration) (TrackingWindow, error) {
	start, err := parseHHMM(h.Start)
	if err != nil {
		return TrackingWindow{}, err
	}
	end, err := parseHHMM(h.End)
	if err != nil {
		return TrackingWindow{}, err
	}
	padMin := int(pad.Minutes())
	w := TrackingWindow{startMin: start - padMin, endMin: end + padMin}
	// Overnight shifts wrap the raw hours themselves.
	if end < start {
		w.endMin += minutesPerDay
	}
	return w, nil
}

// Contains reports whether the local clock time of now falls inside the
// window, handling both wraparound directions.
func (w TrackingWindow) Contains(now time.Time) bool {
	nowMin := now.Hour()*60 + now.Minute()

	start, end := w.startMin, w.endMin
	if start < 0 && end >= minutesPerDay {
		return true
	}
	if start < 0 {
		// Window begins the previous day.
		return nowMin >= minutesPerDay+start || nowMin <= end
	}
	if end >= minutesPerDay {
		// Window ends the next day.
		return nowMin >= start || nowMin <= end-minutesPerDay
	}
	return nowMin >= start && nowMin <= end
}
