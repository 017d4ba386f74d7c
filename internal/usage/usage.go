// Package usage meters requests per account per billing period.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Config struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	// LockTTL bounds how long a crashed holder can block an account.
	LockTTL time.Duration `env:"LOCK_TTL" envDefault:"2m"`
}

// Meter counts requests. Periods are calendar months in UTC.
type Meter interface {
	// Incr records one request and returns the period total.
	Incr(ctx context.Context, userID string) (int64, error)
	Used(ctx context.Context, userID string) (int64, error)
}

// Period names the billing period containing t, e.g. "2026-10".
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func key(userID, period string) string {
	return fmt.Sprintf("usage:%s:%s", userID, period)
}

// MemoryMeter keeps counters in process. Counters from past periods are
// never read again and are dropped on the next write.
type MemoryMeter struct {
	now func() time.Time

	mu     sync.Mutex
	period string
	counts map[string]int64
}

func NewMemoryMeter(now func() time.Time) *MemoryMeter {
	if now == nil {
		now = time.Now
	}
	return &MemoryMeter{now: now, counts: make(map[string]int64)}
}

func (m *MemoryMeter) Incr(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollLocked()
	m.counts[userID]++
	return m.counts[userID], nil
}

func (m *MemoryMeter) Used(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollLocked()
	return m.counts[userID], nil
}

func (m *MemoryMeter) rollLocked() {
	p := Period(m.now())
	if p != m.period {
		m.period = p
		clear(m.counts)
	}
}
