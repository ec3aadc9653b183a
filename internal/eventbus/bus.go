package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/google/uuid"
)

// DefaultBacklog is a subscriber's channel buffer size before further
// events are dropped rather than blocking the publisher.
const DefaultBacklog = 256

type subscriber struct {
	id      uuid.UUID
	ch      chan Event
	dropped int64
}

// Bus fans out Events to subscribers, preserving per-task submission
// order while giving no ordering guarantee across tasks, per §4.9/§5.
// Subscriber lists are copy-on-write so Publish never blocks on a
// registration/unregistration racing with it.
type Bus struct {
	mu      sync.Mutex
	subs    []*subscriber
	seq     sync.Map // uuid.UUID -> *int64
	logger  *logging.Logger
	backlog int
	now     func() time.Time
}

// New constructs a Bus whose subscriber channels are sized to backlog (or
// DefaultBacklog if <= 0).
func New(backlog int, logger *logging.Logger) *Bus {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Bus{backlog: backlog, logger: logger, now: time.Now}
}

// Subscription is a handle a caller uses to receive and later cancel a
// subscription.
type Subscription struct {
	id     uuid.UUID
	Events <-chan Event
	bus    *Bus
}

// Unsubscribe stops delivery to this subscription and closes its channel.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s.id) }

// Subscribe registers a new subscriber and returns its handle.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{id: uuid.New(), ch: make(chan Event, b.backlog)}

	b.mu.Lock()
	next := make([]*subscriber, len(b.subs)+1)
	copy(next, b.subs)
	next[len(b.subs)] = sub
	b.subs = next
	b.mu.Unlock()

	return &Subscription{id: sub.id, Events: sub.ch, bus: b}
}

func (b *Bus) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id == id {
			close(s.ch)
			continue
		}
		next = append(next, s)
	}
	b.subs = next
}

// Publish stamps evt with a timestamp and, if TaskID is set, a
// monotonically increasing per-task sequence number, then delivers it to
// every current subscriber. A subscriber whose backlog is full has the
// event dropped for it (never blocks the publisher) and a warning logged.
func (b *Bus) Publish(evt Event) {
	evt.Timestamp = b.now().UTC()
	if evt.TaskID != uuid.Nil {
		evt.Sequence = b.nextSequence(evt.TaskID)
	}

	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- evt:
		default:
			atomic.AddInt64(&s.dropped, 1)
			if b.logger != nil {
				b.logger.Warn("eventbus: subscriber backlog full, dropping event", map[string]interface{}{
					"channel": string(evt.Channel),
					"taskId":  evt.TaskID.String(),
				})
			}
		}
	}
}

func (b *Bus) nextSequence(taskID uuid.UUID) int64 {
	counterAny, _ := b.seq.LoadOrStore(taskID, new(int64))
	counter := counterAny.(*int64)
	return atomic.AddInt64(counter, 1)
}
