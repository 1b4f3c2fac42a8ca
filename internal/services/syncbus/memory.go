package syncbus

import (
	"sort"
	"sync"
)

// MemoryBus is an in-process Bus used in bench mode and tests. Local Set
// calls are not echoed to local subscribers, matching the no-echo NATS
// connection; Inject simulates a change arriving from a remote peer.
type MemoryBus struct {
	mu       sync.RWMutex
	values   map[string]interface{}
	handlers map[string]map[int]Handler
	nextSub  int
	writes   map[string]int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		values:   make(map[string]interface{}),
		handlers: make(map[string]map[int]Handler),
		writes:   make(map[string]int),
	}
}

func (b *MemoryBus) Get(key string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *MemoryBus) Set(key string, value interface{}) error {
	b.mu.Lock()
	b.values[key] = value
	b.writes[key]++
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Subscribe(key string, h Handler) (func(), error) {
	b.mu.Lock()
	if b.handlers[key] == nil {
		b.handlers[key] = make(map[int]Handler)
	}
	id := b.nextSub
	b.nextSub++
	b.handlers[key][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[key], id)
	}, nil
}

func (b *MemoryBus) Close() error {
	return nil
}

// Inject delivers a remote-originated change: the value is stored and every
// subscriber for the key is invoked synchronously, in subscription order.
func (b *MemoryBus) Inject(key string, value interface{}) {
	b.mu.Lock()
	b.values[key] = value
	ids := make([]int, 0, len(b.handlers[key]))
	for id := range b.handlers[key] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	hs := make([]Handler, 0, len(ids))
	for _, id := range ids {
		hs = append(hs, b.handlers[key][id])
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(key, value)
	}
}

// Writes reports how many local Set calls hit the given key.
func (b *MemoryBus) Writes(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes[key]
}
