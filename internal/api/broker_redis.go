package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so several API
// replicas share one event stream.
type RedisBroker struct {
	rdb *redis.Client

	mu   sync.Mutex
	subs map[chan Event]*redis.PubSub
}

func NewRedisBroker(ctx context.Context, url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	rdb := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &RedisBroker{rdb: rdb, subs: map[chan Event]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(topic string) chan Event {
	ch := make(chan Event, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(topic))
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

// Unsubscribe closes the Redis subscription; ch is closed once its reader
// goroutine drains.
func (b *RedisBroker) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	ps := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(topic string, evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(topic), data).Err()
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(topic string) string { return "cacheplan:" + topic }
