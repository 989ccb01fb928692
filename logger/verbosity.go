package logger

import "go.uber.org/zap/zapcore"

// Verbosity levels counted from -v flags.
const (
	VerbosityQuiet = 0 // warnings and errors only
	VerbosityInfo  = 1 // -v: + job and worker lifecycle
	VerbosityDebug = 2 // -vv: + claims, progress frames, skipped migrations
)

// VerbosityToLevel maps a -v count to a zap level.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityQuiet:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelName returns a human-readable name for a verbosity count
func LevelName(verbosity int) string {
	switch {
	case verbosity <= VerbosityQuiet:
		return "Quiet"
	case verbosity == VerbosityInfo:
		return "Info (-v)"
	default:
		return "Debug (-vv)"
	}
}
