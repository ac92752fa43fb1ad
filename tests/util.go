package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/storage/database"
)

// LogEntry is a message captured by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger that keeps every message in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

// Entries returns the captured messages of the given level, or all of them when level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Config returns the app config with defaults suited to tests.
func Config(t *testing.T) *core.Config {
	t.Helper()
	return NewConfig()
}

// NewConfig is Config for callers without a *testing.T, such as ginkgo specs.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "Gradebook",
		Env:      "TEST",
		TestMode: true,
		Server: core.ServerConfig{
			SecretKey:          "test-secret",
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Email: core.EmailConfig{},
		Grading: core.GradingConfig{
			DefaultMaxScore:    100,
			Weights:            core.DefaultWeights,
			Boundaries:         core.DefaultBoundaries,
			AuditMaxRetries:    2,
			AuditRetryInterval: time.Millisecond,
		},
	}
}

// FreezeTime makes core.Now return ts until the test ends.
func FreezeTime(t *testing.T, ts time.Time) {
	t.Helper()
	t.Cleanup(SetNow(ts))
}

// SetNow makes core.Now return ts and returns the function restoring the clock.
func SetNow(ts time.Time) func() {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return ts }
	return func() { core.NowFunc = orig }
}

// PrepareDB opens the PostgreSQL database named by TEST_DATABASE_URL and migrates it.
// Tests are skipped when the variable is unset. Tables are emptied when the test ends.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err := database.Ping(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err := database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := database.Truncate(db); err != nil {
			t.Errorf("PrepareDB() cleanup failed: %v", err)
		}
		_ = db.Close()
	})
	return db
}
