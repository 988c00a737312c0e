package bus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the channel depth given to each topic
// subscriber. A subscriber that falls this far behind starts losing
// messages rather than blocking the publisher. The main receiver has
// no such limit: it must never drop telemetry, so it is backed by an
// unbounded queue instead (see mainQueue).
const subscriberBuffer = 64

// Message is an immutable record published on the bus. Payload is
// opaque UTF-8, conventionally JSON, and is value-copied to each
// recipient.
type Message struct {
	Topic     string
	Payload   []byte
	Source    string
	Timestamp int64
}

// NewMessage stamps Timestamp with the current time.
func NewMessage(topic string, payload []byte, source string) Message {
	return Message{
		Topic:     topic,
		Payload:   payload,
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
}

// Receiver is a read-only handle to a stream of bus messages.
type Receiver <-chan Message

// Bus is a topic-addressed, many-producer/many-consumer fan-out of
// immutable messages within a single process.
type Bus struct {
	mu          sync.RWMutex
	main        *mainQueue
	subscribers map[string][]chan Message
}

// New constructs a Bus and its main receiver. The main receiver sees
// every message published on the bus, independent of topic, and is
// never subject to drop: a slow or stalled consumer backs up an
// internal unbounded queue rather than losing telemetry.
func New() (*Bus, Receiver) {
	main := newMainQueue()
	return &Bus{
		main:        main,
		subscribers: make(map[string][]chan Message),
	}, main.out
}

// Publish delivers message to the main receiver and to every
// subscriber registered on message.Topic. The main receiver never
// drops: it queues without bound rather than stalling the publisher.
// Topic subscribers are best-effort: a full subscriber channel has the
// message dropped for that recipient instead. Publish itself never
// fails.
func (b *Bus) Publish(message Message) {
	b.main.push(message)

	b.mu.RLock()
	subs := b.subscribers[message.Topic]
	// Copy the slice header under the read lock, then release before
	// sending, so a slow subscriber never holds up registration.
	targets := make([]chan Message, len(subs))
	copy(targets, subs)
	b.mu.RUnlock()

	for _, ch := range targets {
		trySend(ch, message)
	}
}

// PublishAppEvent is a convenience that publishes payload (marshaled
// to JSON) on topic "app.event.<name>".
func (b *Bus) PublishAppEvent(name string, source string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: marshal app event %q: %w", name, err)
	}
	b.Publish(NewMessage("app.event."+name, data, source))
	return nil
}

// Subscribe returns a new receiver bound to topic. Multiple
// subscribers may share a topic; each receives an independent copy of
// every subsequent message. No message published before Subscribe
// returns is replayed.
func (b *Bus) Subscribe(topic string) Receiver {
	ch := make(chan Message, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	return ch
}

// Unsubscribe removes a receiver previously returned by Subscribe from
// topic and closes it. Safe to call at most once per receiver.
func (b *Bus) Unsubscribe(topic string, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, ch := range subs {
		if Receiver(ch) == r {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func trySend(ch chan Message, m Message) {
	select {
	case ch <- m:
	default:
	}
}

// mainQueue is an unbounded, non-dropping delivery path: push appends
// to an in-memory backlog and returns immediately, while a single
// background goroutine drains the backlog into out at whatever pace
// its consumer can keep up with. A slow scheduler stalls only this
// goroutine, never the publisher, and no telemetry is ever discarded.
type mainQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []Message
	out  chan Message
}

func newMainQueue() *mainQueue {
	q := &mainQueue{out: make(chan Message)}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *mainQueue) push(m Message) {
	q.mu.Lock()
	q.buf = append(q.buf, m)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *mainQueue) run() {
	for {
		q.mu.Lock()
		for len(q.buf) == 0 {
			q.cond.Wait()
		}
		m := q.buf[0]
		q.buf[0] = Message{}
		q.buf = q.buf[1:]
		q.mu.Unlock()

		q.out <- m
	}
}
