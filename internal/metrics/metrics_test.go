package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_CountersAreShared(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Counter("http_requests_2xx").Inc()
		}()
	}
	wg.Wait()
	reg.Counter("orders_placed").Add(3)

	snap := reg.Snapshot()
	assert.Equal(t, uint64(50), snap.Counters["http_requests_2xx"])
	assert.Equal(t, uint64(3), snap.Counters["orders_placed"])
	assert.Equal(t, []string{"http_requests_2xx", "orders_placed"}, snap.Names)
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	assert.GreaterOrEqual(t, timer.Duration().Nanoseconds(), int64(0))
}
