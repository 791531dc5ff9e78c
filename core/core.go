package core

import "github.com/hupe1980/rlmesh/logging"

// runLogger scopes a logging.Logger to one run: every record carries the
// run's base attributes. A nil logger discards everything.
type runLogger struct {
	logger logging.Logger
	base   []any
}

func newRunLogger(l logging.Logger, base ...any) *runLogger {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &runLogger{logger: l, base: base}
}

// Logger returns the underlying, unscoped logger.
func (l *runLogger) Logger() logging.Logger { return l.logger }

func (l *runLogger) with(args []any) []any {
	if len(l.base) == 0 {
		return args
	}
	out := make([]any, 0, len(l.base)+len(args))
	return append(append(out, l.base...), args...)
}

// LogDebug logs a debug record with the run attributes.
func (l *runLogger) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogWarn logs a warning with the run attributes.
func (l *runLogger) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs an error with the run attributes.
func (l *runLogger) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
