package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by Queue.Send when the buffer has no room.
var ErrQueueFull = errors.New("mailer: queue full")

// ErrQueueClosed is returned by Queue.Send after Stop.
var ErrQueueClosed = errors.New("mailer: queue closed")

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 10 * time.Second

// Queue delivers messages in the background through another Mailer.
//
// WHY A QUEUE?
// Reservation confirmations are best-effort and must not hold up the HTTP
// response. Send only puts the message on a buffered channel; a fixed set
// of workers drains it. When the buffer is full the message is dropped and
// the caller gets ErrQueueFull, which it logs and ignores.
//
// LIFECYCLE:
// Start launches the workers once. Stop stops accepting messages, lets the
// workers finish what is already buffered, and waits for them.
type Queue struct {
	next    Mailer
	logger  *slog.Logger
	workers int

	messages chan Message

	mu      sync.RWMutex
	closed  bool
	started bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewQueue wraps next with a buffer of size messages and the given number
// of workers.
func NewQueue(next Mailer, size, workers int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 100
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		next:     next,
		logger:   logger,
		workers:  workers,
		messages: make(chan Message, size),
	}
}

// Start launches the workers. Calling it again does nothing.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.mu.Lock()
		q.started = true
		q.mu.Unlock()

		q.logger.Info("starting mail queue", slog.Int("workers", q.workers), slog.Int("buffer", cap(q.messages)))
		for range q.workers {
			q.wg.Add(1)
			go q.worker()
		}
	})
}

// Stop closes the queue and waits for buffered messages to be delivered.
// A queue that was never started has no workers, so whatever is buffered
// is dropped and logged.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.messages)
		started := q.started
		q.mu.Unlock()

		if !started {
			if dropped := len(q.messages); dropped > 0 {
				q.logger.Warn("mail queue stopped before start, dropping messages", slog.Int("dropped", dropped))
			}
			return
		}

		q.wg.Wait()
		q.logger.Info("mail queue stopped")
	})
}

// Send enqueues msg without waiting for delivery.
func (q *Queue) Send(_ context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	select {
	case q.messages <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for msg := range q.messages {
		// The request that queued msg is long gone, so each delivery gets its
		// own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := q.next.Send(ctx, msg); err != nil {
			q.logger.Error("failed to deliver email",
				slog.String("to", msg.To),
				slog.String("subject", msg.Subject),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}
