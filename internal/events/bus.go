package events

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBuffer = 64

type subscriber struct {
	id string
	ch chan Event
}

// Bus fans events out to subscribers. Emit never blocks; a subscriber whose
// buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	logger *zap.Logger
	closed bool
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{subs: make(map[string]*subscriber), logger: logger}
}

// Subscribe returns a receive channel and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (string, <-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &subscriber{id: uuid.NewString(), ch: make(chan Event, buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.id, sub.ch, func() {}
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[sub.id]; ok {
				delete(b.subs, sub.id)
				close(sub.ch)
			}
			b.mu.Unlock()
		})
	}
	return sub.id, sub.ch, cancel
}

func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			b.logger.Warn("event_dropped", zap.String("subscriber", sub.id), zap.String("kind", string(e.Kind())))
		}
	}
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
