package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSessionKey(t *testing.T) {
	m := InboundMessage{Channel: "telegram", ChatID: "42"}
	if m.SessionKey() != "telegram:42" {
		t.Errorf("unexpected session key %q", m.SessionKey())
	}
}

func TestDispatchOutboundRoutesToSubscriber(t *testing.T) {
	b := NewMessageBus(10)

	var mu sync.Mutex
	var delivered []OutboundMessage
	b.SubscribeOutbound("webui", func(msg OutboundMessage) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, msg)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.Outbound <- OutboundMessage{Channel: "webui", ChatID: "1", Content: "hi"}
	b.Outbound <- OutboundMessage{Channel: "missing", ChatID: "2", Content: "dropped"}
	b.Outbound <- OutboundMessage{Channel: "webui", ChatID: "3", Content: "again"}

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered)
	}
	deadline := time.After(time.Second)
	for count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 delivered messages, got %d", count())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
