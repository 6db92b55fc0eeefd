package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Storage is the persistent key-value store that backs a session.
// It plays the role browser storage plays for the web client: one
// namespace per user agent, string values, no expiry.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SessionRepository reads and writes the live session and the single
// backup slot used while a parent previews a child account.
type SessionRepository interface {
	Get(ctx context.Context) (Session, error)
	Set(ctx context.Context, session Session) error
	Clear(ctx context.Context) error

	// SaveBackup copies the live session, as stored, into the backup slot.
	SaveBackup(ctx context.Context) error
	// RestoreBackup moves the backup slot back into the live session.
	RestoreBackup(ctx context.Context) error
	// DiscardBackup empties the backup slot and leaves the live session alone.
	DiscardBackup(ctx context.Context) error
	HasBackup(ctx context.Context) (bool, error)
	BackupSession(ctx context.Context) (Session, bool, error)
}

// Config holds client options
type Config interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetStoreDriver() string
	GetStorePath() string
	GetWebAddr() string
	GetCookieSecure() bool
	GetCookieTTL() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IMC "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IMC "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IMC "+newline(format), args...)
}

// NopLogger discards everything, handy for CLIs that print their own output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// DefaultLogger returns the printf logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
