package enrichment

import (
	"testing"

	"sage-backend/internal/model"
)

func TestBrokerPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	if b.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.SubscriberCount())
	}

	b.Publish(model.EnrichmentEvent{MessageID: 5})

	for i, ch := range []chan model.EnrichmentEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.MessageID != 5 {
				t.Errorf("subscriber %d got message id %d", i, ev.MessageID)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	b.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	// 重复取消订阅不应panic
	b.Unsubscribe(ch)
}

func TestBrokerDropsEventsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	// 超出缓冲容量的事件被静默丢弃，Publish不得阻塞
	for i := 0; i < 40; i++ {
		b.Publish(model.EnrichmentEvent{MessageID: int64(i)})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}

	if received != cap(ch) {
		t.Errorf("expected %d buffered events, got %d", cap(ch), received)
	}
}
