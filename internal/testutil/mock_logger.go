// Package testutil holds test doubles shared across packages.
package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
)

// Entry is one captured log call.
type Entry struct {
	Level   string
	Message string
	Fields  []logging.Field
}

// MockLogger implements logging.Logger and records every call so tests
// can assert on levels, messages and attached fields. Loggers derived
// with With share the same entry sink.
type MockLogger struct {
	sink *entrySink
	base []logging.Field
}

type entrySink struct {
	mu      sync.Mutex
	entries []Entry
}

var _ logging.Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{sink: &entrySink{}}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.base)+len(fields))
	all = append(all, m.base...)
	all = append(all, fields...)

	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = append(m.sink.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }

// Fatal records the entry instead of exiting.
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	base := make([]logging.Field, 0, len(m.base)+len(fields))
	base = append(base, m.base...)
	base = append(base, fields...)
	return &MockLogger{sink: m.sink, base: base}
}

func (m *MockLogger) WithContext(context.Context) logging.Logger { return m }

func (m *MockLogger) Named(string) logging.Logger { return m }

func (m *MockLogger) Sync() error { return nil }

// Entries returns a copy of everything logged so far.
func (m *MockLogger) Entries() []Entry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	out := make([]Entry, len(m.sink.entries))
	copy(out, m.sink.entries)
	return out
}

// Clear drops all captured entries.
func (m *MockLogger) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = m.sink.entries[:0]
}

// Has reports whether an entry with the level and message was logged.
func (m *MockLogger) Has(level, msg string) bool {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// HasField reports whether any entry carries a field with the key.
func (m *MockLogger) HasField(key string) bool {
	for _, e := range m.Entries() {
		for _, f := range e.Fields {
			if f.Key == key {
				return true
			}
		}
	}
	return false
}
