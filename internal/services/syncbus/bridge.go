package syncbus

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"
)

// Bridge sits between in-process state and the bus and enforces echo
// suppression: a value that arrived from the bus is never written back to
// the bus. Suppression works off an explicit last-known-value cache per key,
// compared before every outbound write.
type Bridge struct {
	bus Bus

	mu        sync.Mutex
	lastKnown map[string]interface{}
}

func NewBridge(bus Bus) *Bridge {
	return &Bridge{
		bus:       bus,
		lastKnown: make(map[string]interface{}),
	}
}

// Publish writes value to key unless the bus already holds it. Returns true
// when an outbound write actually happened.
func (b *Bridge) Publish(key string, value interface{}) bool {
	b.mu.Lock()
	prev, seen := b.lastKnown[key]
	if seen && equalValues(prev, value) {
		b.mu.Unlock()
		return false
	}
	b.lastKnown[key] = value
	b.mu.Unlock()

	if err := b.bus.Set(key, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to publish value to sync bus")
	}
	return true
}

// Force writes value to key unconditionally. Used to revert the remote
// representation after a rejected operation.
func (b *Bridge) Force(key string, value interface{}) {
	b.mu.Lock()
	b.lastKnown[key] = value
	b.mu.Unlock()

	if err := b.bus.Set(key, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to revert value on sync bus")
	}
}

// Listen subscribes h to remote changes on key. The cache is updated before
// h runs, so an h that publishes the same value back is a no-op.
func (b *Bridge) Listen(key string, h Handler) (func(), error) {
	return b.bus.Subscribe(key, func(k string, value interface{}) {
		b.mu.Lock()
		b.lastKnown[k] = value
		b.mu.Unlock()
		h(k, value)
	})
}

// LastKnown exposes the cached bus value for a key.
func (b *Bridge) LastKnown(key string) (interface{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.lastKnown[key]
	return v, ok
}

// Bus returns the underlying bus.
func (b *Bridge) Bus() Bus {
	return b.bus
}

// equalValues compares numbers numerically so an int stored locally matches
// the float64 the JSON decoder produced for the same value.
func equalValues(a, b interface{}) bool {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
