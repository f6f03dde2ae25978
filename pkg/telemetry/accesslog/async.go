package accesslog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the queue length used when none is configured.
const DefaultBufferSize = 4096

// writeTimeout bounds a single sink write from the background worker.
const writeTimeout = 5 * time.Second

// Async queues records for a background worker so request handling never
// waits on disk or database writes. When the queue is full new records are
// dropped and counted.
type Async struct {
	sink    Sink
	queue   chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup
	closed  sync.Once
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewAsync starts a worker draining into sink.
func NewAsync(sink Sink, bufferSize int) *Async {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	a := &Async{
		sink:   sink,
		queue:  make(chan *Entry, bufferSize),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "accesslog"),
	}

	a.wg.Add(1)
	go a.worker()

	return a
}

// Log enqueues e without blocking. It reports whether the record was
// accepted.
func (a *Async) Log(e *Entry) bool {
	select {
	case <-a.done:
		return false
	default:
	}

	select {
	case a.queue <- e:
		return true
	default:
		if n := a.dropped.Add(1); n == 1 || n%1000 == 0 {
			a.logger.Warn("access log queue full, dropping records",
				"dropped_total", n,
				"queue_capacity", cap(a.queue),
			)
		}
		return false
	}
}

// Dropped returns the number of records dropped because the queue was full.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting records, drains the queue and closes the sink.
func (a *Async) Close() error {
	var err error
	a.closed.Do(func() {
		close(a.done)
		a.wg.Wait()
		err = a.sink.Close()
	})
	return err
}

func (a *Async) worker() {
	defer a.wg.Done()

	for {
		select {
		case e := <-a.queue:
			a.write(e)

		case <-a.done:
			for {
				select {
				case e := <-a.queue:
					a.write(e)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) write(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := a.sink.Write(ctx, e); err != nil {
		a.logger.Error("failed to write access record",
			"request_id", e.RequestID,
			"error", err,
		)
	}
}
