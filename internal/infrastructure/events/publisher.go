// Package events publica eventos del kardex después del commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
)

// DefaultQueue lista de Redis donde se encolan los eventos.
const DefaultQueue = "inventory:events"

var (
	_ ports.EventPublisher = (*RedisPublisher)(nil)
	_ ports.EventPublisher = Noop{}
)

// NewRedis crea y valida la conexión a Redis a partir de una URL redis://.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// RedisPublisher encola cada evento como JSON en una lista (LPUSH); los consumidores hacen BRPOP.
type RedisPublisher struct {
	rdb   redis.Cmdable
	queue string
	log   zerolog.Logger
}

// NewRedisPublisher construye el publicador. queue vacío = DefaultQueue.
func NewRedisPublisher(rdb redis.Cmdable, queue string, log zerolog.Logger) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisPublisher{rdb: rdb, queue: queue, log: log}
}

// Publish serializa y encola el evento.
func (p *RedisPublisher) Publish(ctx context.Context, evt ports.Event) error {
	payload, err := Encode(evt)
	if err != nil {
		return err
	}
	if err := p.rdb.LPush(ctx, p.queue, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", p.queue, err)
	}
	p.log.Debug().Str("event", evt.Type).Str("reference", evt.Reference).Msg("evento encolado")
	return nil
}

// Encode serializa el evento al formato de la cola.
func Encode(evt ports.Event) ([]byte, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", evt.Type, err)
	}
	return b, nil
}

// Decode lee un evento encolado.
func Decode(b []byte) (ports.Event, error) {
	var evt ports.Event
	if err := json.Unmarshal(b, &evt); err != nil {
		return ports.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}

// Noop descarta los eventos; se usa cuando REDIS_URL no está configurado.
type Noop struct{}

func (Noop) Publish(context.Context, ports.Event) error { return nil }
