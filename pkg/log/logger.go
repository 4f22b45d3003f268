// Package log is the project's structured logging library: leveled
// entries with flat key/value fields, delivered asynchronously to
// pluggable transporters.
package log

import (
	"context"
	"sync"
)

// Logger writes leveled structured entries.
type Logger struct {
	mu     sync.RWMutex
	level  Level
	buf    *buffer
	fields map[string]any
}

// New creates a logger with the given minimum level and transporters.
func New(level Level, transporters ...Transporter) *Logger {
	return &Logger{
		level:  level,
		buf:    newBuffer(1000, transporters...),
		fields: make(map[string]any),
	}
}

// SetLevel changes the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// With returns a child logger carrying additional base fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	l.mu.RLock()
	fields := make(map[string]any, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	level := l.level
	l.mu.RUnlock()

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return &Logger{level: level, buf: l.buf, fields: fields}
}

// Close flushes remaining entries and stops delivery.
func (l *Logger) Close() {
	l.buf.close()
}

// Dropped returns the count of entries lost to backpressure.
func (l *Logger) Dropped() int64 {
	return l.buf.droppedCount()
}

func (l *Logger) log(level Level, ctx context.Context, msg string, keysAndValues ...any) {
	l.mu.RLock()
	min := l.level
	l.mu.RUnlock()
	if !min.Enables(level) {
		return
	}

	entry := newEntry(level, msg)
	l.mu.RLock()
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	l.mu.RUnlock()

	if ctx != nil {
		entry.RequestID = RequestIDFromContext(ctx)
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			entry.Fields[key] = keysAndValues[i+1]
		}
	}
	l.buf.send(entry)
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.log(Debug, nil, msg, keysAndValues...)
}

// Info logs at Info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log(Info, nil, msg, keysAndValues...)
}

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.log(Warn, nil, msg, keysAndValues...)
}

// Error logs at Error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.log(Error, nil, msg, keysAndValues...)
}

// DebugCtx logs at Debug level with context.
func (l *Logger) DebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Debug, ctx, msg, keysAndValues...)
}

// InfoCtx logs at Info level with context.
func (l *Logger) InfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Info, ctx, msg, keysAndValues...)
}

// WarnCtx logs at Warn level with context.
func (l *Logger) WarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Warn, ctx, msg, keysAndValues...)
}

// ErrorCtx logs at Error level with context.
func (l *Logger) ErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Error, ctx, msg, keysAndValues...)
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger

	silentOnce   sync.Once
	silentLogger *Logger
)

// SetDefault installs the process-wide logger.
func SetDefault(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Default returns the process-wide logger, or a shared silent one if
// unset. The silent logger is built once; its buffer owns a delivery
// goroutine, so constructing it per call would leak one each time.
func Default() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l == nil {
		silentOnce.Do(func() {
			silentLogger = &Logger{
				level:  Fatal + 1, // nothing enabled
				buf:    newBuffer(1),
				fields: make(map[string]any),
			}
		})
		return silentLogger
	}
	return l
}
