package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesMainReceiver(t *testing.T) {
	b, main := New()

	b.Publish(NewMessage("v01", []byte(`{"a":1}`), "reader-1"))

	select {
	case m := <-main:
		require.Equal(t, "v01", m.Topic)
		require.Equal(t, "reader-1", m.Source)
	case <-time.After(time.Second):
		t.Fatal("main receiver did not observe the publish")
	}
}

func TestSubscribeReceivesOwnTopicOnly(t *testing.T) {
	b, _ := New()
	sub := b.Subscribe("scheduler_event")

	b.Publish(NewMessage("v01", []byte("{}"), "reader-1"))
	b.Publish(NewMessage("scheduler_event", []byte(`{"event":"batch_start"}`), "scheduler"))

	select {
	case m := <-sub:
		require.Equal(t, "scheduler_event", m.Topic)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not observe its topic's publish")
	}

	select {
	case m := <-sub:
		t.Fatalf("subscriber should not have received %q", m.Topic)
	default:
	}
}

func TestMultipleSubscribersEachGetACopy(t *testing.T) {
	b, _ := New()
	a := b.Subscribe("v01")
	c := b.Subscribe("v01")

	b.Publish(NewMessage("v01", []byte("{}"), "reader-1"))

	for _, sub := range []Receiver{a, c} {
		select {
		case <-sub:
		case <-time.After(time.Second):
			t.Fatal("one subscriber never saw the message")
		}
	}
}

func TestPublishNeverBlocksOnSaturatedSubscriber(t *testing.T) {
	b, _ := New()
	sub := b.Subscribe("v01")

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			b.Publish(NewMessage("v01", []byte("{}"), "reader-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a subscriber that never drained")
	}

	require.LessOrEqual(t, len(sub), subscriberBuffer)
}

func TestPublishNeverDropsOnAStalledMainReceiver(t *testing.T) {
	b, main := New()

	const sent = subscriberBuffer * 4
	done := make(chan struct{})
	go func() {
		for i := 0; i < sent; i++ {
			b.Publish(NewMessage("v01", []byte("{}"), "reader-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked even though nothing has drained the main receiver yet")
	}

	received := 0
	for received < sent {
		select {
		case <-main:
			received++
		case <-time.After(time.Second):
			t.Fatalf("main receiver only delivered %d/%d messages; some were dropped", received, sent)
		}
	}
}

func TestPublishAppEvent(t *testing.T) {
	b, main := New()

	err := b.PublishAppEvent("endpoint_scan", "transport", map[string]any{"found": 2})
	require.NoError(t, err)

	select {
	case m := <-main:
		require.Equal(t, "app.event.endpoint_scan", m.Topic)
		require.Contains(t, string(m.Payload), `"found":2`)
	case <-time.After(time.Second):
		t.Fatal("app event not observed")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b, _ := New()
	sub := b.Subscribe("v01")
	b.Unsubscribe("v01", sub)

	b.Publish(NewMessage("v01", []byte("{}"), "reader-1"))

	_, ok := <-sub
	require.False(t, ok, "channel should be closed after Unsubscribe")
}
