package syncbus

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/config"
)

// NatsBus implements Bus over a NATS connection. Published values are JSON;
// the last value seen per key is cached locally so Get never blocks on the
// network.
type NatsBus struct {
	conn *nats.Conn

	mu     sync.RWMutex
	cache  map[string]interface{}
	closed bool
}

func NewNatsBus(cfg *config.Config) (*NatsBus, error) {
	opts := []nats.Option{
		nats.Name("visiond-" + cfg.InstanceID),
		// Own publishes must not come back as remote changes.
		nats.NoEcho(),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &NatsBus{
		conn:  conn,
		cache: make(map[string]interface{}),
	}, nil
}

func (b *NatsBus) Get(key string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.cache[key]
	return v, ok
}

func (b *NatsBus) Set(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.cache[key] = value
	b.mu.Unlock()

	return b.conn.Publish(subject(key), payload)
}

func (b *NatsBus) Subscribe(key string, h Handler) (func(), error) {
	sub, err := b.conn.Subscribe(subject(key), func(msg *nats.Msg) {
		var value interface{}
		if err := json.Unmarshal(msg.Data, &value); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Dropping malformed bus payload")
			return
		}

		b.mu.Lock()
		b.cache[key] = value
		b.mu.Unlock()

		h(key, value)
	})
	if err != nil {
		return nil, err
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Unsubscribe failed")
		}
	}, nil
}

func (b *NatsBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	// Try graceful drain, fall back to immediate close
	if err := b.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		b.conn.Close()
	}
	return nil
}

func subject(key string) string {
	return strings.ReplaceAll(key, "/", ".")
}
