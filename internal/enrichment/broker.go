package enrichment

import (
	"sync"

	"sage-backend/internal/model"
)

// Broker 向所有订阅者广播富化状态变化，慢消费者直接丢弃事件
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan model.EnrichmentEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[chan model.EnrichmentEvent]struct{}),
	}
}

func (b *Broker) Subscribe() chan model.EnrichmentEvent {
	ch := make(chan model.EnrichmentEvent, 16)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[ch] = struct{}{}
	return ch
}

func (b *Broker) Unsubscribe(ch chan model.EnrichmentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[ch]; exists {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *Broker) Publish(event model.EnrichmentEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}
