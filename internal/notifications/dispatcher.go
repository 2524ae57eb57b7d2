package notifications

import (
	"context"
	"sync"
	"time"

	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/sanitizer"
)

const queuePerWorker = 16

// Dispatcher delivers messages in the background with a fixed number of
// workers. Callers never wait for delivery.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	metrics *metrics.BookingMetrics
	log     *logger.Logger

	queue chan Message
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, workers int, timeout time.Duration, m *metrics.BookingMetrics, log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		sender:  sender,
		timeout: timeout,
		metrics: m,
		log:     log,
		queue:   make(chan Message, workers*queuePerWorker),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch queues msg and reports whether it was accepted. A full queue
// drops the message.
func (d *Dispatcher) Dispatch(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.log.Warn("notification queue full, dropping message",
			"kind", msg.Kind,
			"to", sanitizer.MaskPhone(msg.To),
		)
		d.metrics.ObserveNotification(string(msg.Kind)+"_dropped", nil)
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	id, err := d.sender.Send(ctx, msg)
	d.metrics.ObserveNotification(string(msg.Kind), err)
	if err != nil {
		d.log.Error("failed to deliver notification",
			"kind", msg.Kind,
			"to", sanitizer.MaskPhone(msg.To),
			"ref", msg.Ref,
			"error", err,
		)
		return
	}
	d.log.Debug("notification delivered", "kind", msg.Kind, "message_id", id)
}

// Stop refuses new messages and waits for the queue to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
