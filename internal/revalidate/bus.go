// Package revalidate fans out "these views are stale" notifications to
// connected dashboard clients, mirrored across replicas through Redis.
package revalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oremus-labs/watchdesk/internal/metrics"
)

// Event types published after successful mutations.
const (
	TypeWatchlistCreated = "watchlist.created"
	TypeWatchlistUpdated = "watchlist.updated"
	TypeWatchlistDeleted = "watchlist.deleted"
	TypeTermAdded        = "term.added"
	TypeTermDeleted      = "term.deleted"
	TypeEventSimulated   = "event.simulated"
	TypeEventAnalyzed    = "event.analyzed"
	TypeHealthChanged    = "health.changed"
)

// DefaultChannel is the Redis pub/sub channel used when none is configured.
const DefaultChannel = "watchdesk-revalidate"

// Event tells subscribers which dashboard paths need refreshing.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Paths     []string    `json:"paths,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Origin    string      `json:"origin,omitempty"`
}

// PathsFor returns the views invalidated by a mutation of the given type.
// id is the watchlist id for watchlist and term mutations and the event id
// for analyses.
func PathsFor(eventType, id string) []string {
	switch eventType {
	case TypeWatchlistCreated, TypeWatchlistDeleted:
		return []string{"/watchlists"}
	case TypeWatchlistUpdated:
		return []string{"/watchlists", "/watchlists/" + id}
	case TypeTermAdded, TypeTermDeleted:
		return []string{"/watchlists/" + id}
	case TypeEventSimulated:
		return []string{"/events"}
	case TypeEventAnalyzed:
		return []string{"/events", "/events/" + id}
	case TypeHealthChanged:
		return []string{"/"}
	default:
		return nil
	}
}

// Mutation builds the event for a successful mutation.
func Mutation(eventType, id string, data interface{}) Event {
	return Event{Type: eventType, Paths: PathsFor(eventType, id), Data: data}
}

// Bus multiplexes events to local subscribers and, when configured, Redis.
type Bus struct {
	client redis.UniversalClient
	logger *slog.Logger
	ch     string
	origin string

	mu          sync.RWMutex
	subscribers map[chan Event]struct{}

	stop context.CancelFunc
	done chan struct{}
}

// Options configure the bus.
type Options struct {
	Client  redis.UniversalClient
	Logger  *slog.Logger
	Channel string
}

// NewBus creates a bus. With a Redis client it also relays events published
// by other replicas until Close is called.
func NewBus(opts Options) *Bus {
	channel := opts.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	bus := &Bus{
		client:      opts.Client,
		logger:      logger,
		ch:          channel,
		origin:      uuid.NewString(),
		subscribers: make(map[chan Event]struct{}),
		stop:        stop,
		done:        make(chan struct{}),
	}
	if bus.client != nil {
		go bus.observeRedis(ctx)
	} else {
		close(bus.done)
	}
	return bus
}

// Publish broadcasts an event to local subscribers and Redis.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Origin = b.origin

	b.broadcast(evt)
	metrics.ObserveRevalidation(evt.Type)

	if b.client != nil {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal revalidation event: %w", err)
		}
		if err := b.client.Publish(ctx, b.ch, payload).Err(); err != nil {
			return fmt.Errorf("redis publish: %w", err)
		}
	}
	return nil
}

// Subscribe registers a subscriber. The channel closes when ctx ends or the
// returned cancel func runs.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			close(ch)
			b.mu.Unlock()
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

// Subscribers reports the number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close stops the Redis relay.
func (b *Bus) Close() {
	b.stop()
	<-b.done
}

func (b *Bus) broadcast(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("dropping revalidation event", "id", evt.ID, "type", evt.Type, "reason", "subscriber backlog")
		}
	}
}

func (b *Bus) observeRedis(ctx context.Context) {
	defer close(b.done)
	pubsub := b.client.Subscribe(ctx, b.ch)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("redis subscriber error", "channel", b.ch, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			b.logger.Warn("invalid revalidation payload", "error", err)
			continue
		}
		if evt.Origin == b.origin {
			continue
		}
		b.broadcast(evt)
	}
}
