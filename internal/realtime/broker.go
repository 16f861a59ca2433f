package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker fans events out to per-user subscribers.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for userID. The channel is
	// closed once the returned cancel func runs or ctx ends.
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, func(), error)
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events for it are dropped.
const subscriberBuffer = 64

// outbox is the bounded queue of one subscriber. It has one slot beyond
// subscriberBuffer, reserved for the resync marker queued when events
// start being dropped.
type outbox struct {
	mu     sync.Mutex
	ch     chan Event
	lagged bool
}

func newOutbox() *outbox {
	return &outbox{ch: make(chan Event, subscriberBuffer+1)}
}

// offer queues ev without blocking and reports whether it was kept. The
// first drop after a delivery queues a single resync marker; later drops
// are covered by it until the subscriber catches up.
func (o *outbox) offer(userID uuid.UUID, ev Event) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.ch) >= subscriberBuffer {
		if !o.lagged {
			o.lagged = true
			o.ch <- Event{Action: ActionResync, UserID: userID, At: time.Now().UTC()}
		}
		return false
	}
	o.lagged = false
	o.ch <- ev
	return true
}

// NewBroker picks the Redis broker when a client is configured and the
// in-process broker otherwise.
func NewBroker(client *goredis.Client, logger *zap.Logger) Broker {
	if client != nil {
		return NewRedisBroker(client, logger.Named("RedisBroker"))
	}
	return NewMemoryBroker(logger.Named("MemoryBroker"))
}

// MemoryBroker delivers events within a single process.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*memorySub]struct{}
	logger *zap.Logger
}

type memorySub struct {
	box  *outbox
	once sync.Once
}

func NewMemoryBroker(logger *zap.Logger) *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[uuid.UUID]map[*memorySub]struct{}),
		logger: logger,
	}
}

// Publish never blocks; a full subscriber buffer drops the event and the
// subscriber is told to resync.
func (b *MemoryBroker) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[ev.UserID] {
		if !sub.box.offer(ev.UserID, ev) {
			b.logger.Warn("Dropping realtime event for slow subscriber",
				zap.String("userID", ev.UserID.String()),
				zap.String("table", ev.Table),
			)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, func(), error) {
	sub := &memorySub{box: newOutbox()}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*memorySub]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], sub)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(sub.box.ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.box.ch, cancel, nil
}
