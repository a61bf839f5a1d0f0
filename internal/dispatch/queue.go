// Package dispatch decouples outbound delivery from conversation state.
// The engine commits its state transition first and only then enqueues the
// resulting messages; workers drain the queue so a slow or failing gateway
// can never corrupt a session or block the webhook path.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/immuned/rheumabot/internal/metrics"
)

// Sender delivers one message to one participant.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, phone, text string) error

func (f SenderFunc) Send(ctx context.Context, phone, text string) error {
	return f(ctx, phone, text)
}

type message struct {
	phone string
	text  string
}

// Queue is a buffered send queue drained by a fixed worker pool. Delivery is
// best-effort: each message gets a bounded number of attempts and failures
// are logged, never surfaced to the enqueuer.
type Queue struct {
	sender      Sender
	ch          chan message
	wg          sync.WaitGroup
	sendTimeout time.Duration
	attempts    int
	backoff     time.Duration

	closeOnce sync.Once
}

// NewQueue starts workers goroutines draining a queue of the given size.
func NewQueue(sender Sender, size, workers int) *Queue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 4
	}
	q := &Queue{
		sender:      sender,
		ch:          make(chan message, size),
		sendTimeout: 10 * time.Second,
		attempts:    2,
		backoff:     500 * time.Millisecond,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue queues text for phone without blocking. When the queue is
// saturated the message is dropped and counted; state handling must never
// wait on delivery.
func (q *Queue) Enqueue(phone, text string) {
	select {
	case q.ch <- message{phone: phone, text: text}:
	default:
		metrics.IncQueueDropped()
		log.Printf("dispatch: queue full, dropping message to %s", phone)
	}
}

// Close stops accepting messages and waits for workers to drain the queue.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for m := range q.ch {
		q.deliver(m)
	}
}

func (q *Queue) deliver(m message) {
	var err error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), q.sendTimeout)
		err = q.sender.Send(ctx, m.phone, m.text)
		cancel()
		if err == nil {
			metrics.IncSend(metrics.SendOK)
			return
		}
		if attempt < q.attempts {
			time.Sleep(q.backoff)
		}
	}
	metrics.IncSend(metrics.SendFailed)
	log.Printf("dispatch: send to %s failed: %v", m.phone, err)
}
