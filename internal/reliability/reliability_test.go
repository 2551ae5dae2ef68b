package reliability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	calls     int32
	table     model.ReliabilityTable
	err       error
	fetchGate chan struct{} // optional: blocks FetchRules until closed
}

func (f *fakeStore) FetchRules(ctx context.Context) (model.ReliabilityTable, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func TestCache_FetchesOnFirstCall(t *testing.T) {
	store := &fakeStore{table: model.ReliabilityTable{
		"UA": {CarrierPrefix: "UA", MinCount: 2},
	}}
	c := New(store, config.ReliabilityConfig{CacheTTL: 5 * time.Minute})

	table := c.Table(context.Background())
	assert.Equal(t, 2, table.Lookup("UA").MinCount)
	assert.EqualValues(t, 1, atomic.LoadInt32(&store.calls))
}

func TestCache_ServesFromCacheWithinTTL(t *testing.T) {
	store := &fakeStore{table: model.ReliabilityTable{"UA": {MinCount: 2}}}
	c := New(store, config.ReliabilityConfig{CacheTTL: 5 * time.Minute})

	c.Table(context.Background())
	c.Table(context.Background())
	c.Table(context.Background())

	assert.EqualValues(t, 1, atomic.LoadInt32(&store.calls))
}

func TestCache_RefetchesAfterTTL(t *testing.T) {
	store := &fakeStore{table: model.ReliabilityTable{"UA": {MinCount: 2}}}
	c := New(store, config.ReliabilityConfig{CacheTTL: time.Millisecond})

	c.Table(context.Background())
	time.Sleep(5 * time.Millisecond)
	c.Table(context.Background())

	assert.EqualValues(t, 2, atomic.LoadInt32(&store.calls))
}

func TestCache_ConcurrentCallersShareOneFetch(t *testing.T) {
	store := &fakeStore{
		table:     model.ReliabilityTable{"UA": {MinCount: 2}},
		fetchGate: make(chan struct{}),
	}
	c := New(store, config.ReliabilityConfig{CacheTTL: 5 * time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Table(context.Background())
		}()
	}

	close(store.fetchGate)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&store.calls))
}

func TestCache_FetchFailureFallsBackToPreviousTable(t *testing.T) {
	store := &fakeStore{table: model.ReliabilityTable{"UA": {MinCount: 2}}}
	c := New(store, config.ReliabilityConfig{CacheTTL: time.Millisecond})

	first := c.Table(context.Background())
	require.Equal(t, 2, first.Lookup("UA").MinCount)

	time.Sleep(5 * time.Millisecond)
	store.err = errors.New("connection refused")

	second := c.Table(context.Background())
	assert.Equal(t, 2, second.Lookup("UA").MinCount)
}

func TestCache_FetchFailureWithNoPriorTableReturnsEmpty(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	c := New(store, config.ReliabilityConfig{CacheTTL: 5 * time.Minute})

	table := c.Table(context.Background())
	assert.Equal(t, 1, table.Lookup("UA").MinCount) // permissive default, not a rule hit
}
