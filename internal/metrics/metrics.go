// Package metrics keeps process-local counters for the internal status
// endpoint. Values reset on restart.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry hands out counters by name, creating them on first use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	started  time.Time
}

func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter), started: time.Now()}
}

func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

type Snapshot struct {
	UptimeSeconds int64             `json:"uptime_seconds"`
	Counters      map[string]uint64 `json:"counters"`
	Names         []string          `json:"-"`
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		UptimeSeconds: int64(time.Since(r.started).Seconds()),
		Counters:      make(map[string]uint64, len(r.counters)),
	}
	for name, c := range r.counters {
		s.Counters[name] = c.Load()
		s.Names = append(s.Names, name)
	}
	sort.Strings(s.Names)
	return s
}
