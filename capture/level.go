package capture

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownLevel is returned when a level string cannot be parsed.
var ErrUnknownLevel = errors.New("unknown level")

// Level is the severity of a captured event.
//
// Levels form a total order with LevelError as the highest severity:
// ERROR > WARN > INFO > DEBUG > TRACE. The numeric values are ordered the
// other way around (LevelError is the smallest) so the zero value is the
// most severe; use AtLeast for severity comparisons instead of comparing
// values directly.
type Level int8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// LevelTraceSlog is the slog.Level used for TRACE, one step below
// slog.LevelDebug following the common convention for custom trace levels.
const LevelTraceSlog = slog.LevelDebug - 4

// AtLeast reports whether l is at or above the given severity,
// per the total order ERROR > WARN > INFO > DEBUG > TRACE.
func (l Level) AtLeast(minimum Level) bool {
	return l <= minimum
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int8(l))
	}
}

// ParseLevel converts a level name as produced by Level.String back into a
// Level. Returns ErrUnknownLevel for anything else.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "ERROR":
		return LevelError, nil
	case "WARN":
		return LevelWarn, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	case "TRACE":
		return LevelTrace, nil
	default:
		return LevelError, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// LevelFromSlog maps an slog.Level onto the capture severity scale.
// Anything below slog.LevelDebug is treated as TRACE.
func LevelFromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	case l >= slog.LevelDebug:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// Slog returns the slog.Level equivalent of l.
func (l Level) Slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	default:
		return LevelTraceSlog
	}
}

// MarshalJSON encodes the level as its string name.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON decodes a level from its string name.
// An unknown name is an error so malformed import records are rejected
// instead of silently becoming ERROR.
func (l *Level) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrUnknownLevel, string(data))
	}

	parsed, err := ParseLevel(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}
