package config

import (
	"fmt"
	"strings"

	"github.com/raviyer/optsim/strategies"
)

// ParseDayTime parses "HH:MM" into a clock time.
func ParseDayTime(s string) (strategies.DayTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return strategies.DayTime{}, fmt.Errorf("bad time %q, want HH:MM", s)
	}
	dt := strategies.DayTime{Hour: h, Minute: m}
	if !dt.Valid() {
		return strategies.DayTime{}, fmt.Errorf("bad time %q, want HH:MM", s)
	}
	return dt, nil
}

// ParseWindow parses "HH:MM-HH:MM" into a session window.
func ParseWindow(s string) (strategies.Window, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return strategies.Window{}, fmt.Errorf("bad window %q, want HH:MM-HH:MM", s)
	}
	start, err := ParseDayTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return strategies.Window{}, err
	}
	end, err := ParseDayTime(strings.TrimSpace(parts[1]))
	if err != nil {
		return strategies.Window{}, err
	}
	w := strategies.Window{Start: start, End: end}
	if !w.Valid() {
		return strategies.Window{}, fmt.Errorf("bad window %q, start must precede end", s)
	}
	return w, nil
}

// ParseWindows parses a list of session window strings.
func ParseWindows(ss []string) ([]strategies.Window, error) {
	windows := make([]strategies.Window, 0, len(ss))
	for _, s := range ss {
		w, err := ParseWindow(s)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}
