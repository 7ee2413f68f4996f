package workers

import "log/slog"

type message struct {
	worker int
	level  slog.Level
	msg    string
	args   []any
}

// Logger forwards a worker's messages to the pool's single log listener.
// Workers never write to the process logger themselves.
type Logger struct {
	ch     chan<- message
	worker int
}

func (l Logger) log(level slog.Level, msg string, args ...any) {
	if l.ch == nil {
		return
	}
	l.ch <- message{worker: l.worker, level: level, msg: msg, args: args}
}

// Debug logs at debug level.
func (l Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }
