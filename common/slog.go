package common

import (
	"fmt"
	"log/slog"
	"strings"
)

// SlogResetLevel sets the default slog level and returns a function that
// restores the previous level, pairs well with defer.
// Use like:
// func Test123(t *testing.T) {
//     defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
func SlogResetLevel(level slog.Level) (reset func()) {
	oldLevel := slog.SetLogLoggerLevel(level)
	return func() {
		slog.SetLogLoggerLevel(oldLevel)
	}
}

// ParseLevel parses a verbosity name: debug, info, warn or error.
// The names slog accepts, including offsets like "info+2", also work.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown verbosity %q", s)
	}
	return level, nil
}
