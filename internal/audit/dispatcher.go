package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Overflow selects what Emit does when the queue is full.
type Overflow uint8

const (
	// Block waits for space, ctx cancellation, or Close.
	Block Overflow = iota
	// Drop counts the event as dropped and returns at once.
	Drop
)

// Config controls a Dispatcher.
type Config struct {
	BufferSize int
	Overflow   Overflow
	// Classify fills Event.Reason from Event.Err. Nil leaves Reason as set.
	Classify func(error) string
}

// Dispatcher relays events to one sink from a single goroutine, so the sink
// sees events in emit order. Error classification happens there too, off the
// request path. A nil *Dispatcher accepts and ignores every call.
type Dispatcher struct {
	sink      Sink
	overflow  Overflow
	classify  func(error) string
	queue     chan Event
	stop      chan struct{}
	wg        sync.WaitGroup
	delivered atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. A nil sink discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		overflow: cfg.Overflow,
		classify: cfg.Classify,
		queue:    make(chan Event, size),
		stop:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is still queued after stop.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver resolves the reason and strips Err so sinks never see raw errors.
func (d *Dispatcher) deliver(ev Event) {
	if ev.Err != nil {
		if ev.Reason == "" && d.classify != nil {
			ev.Reason = d.classify(ev.Err)
		}
		ev.Err = nil
	}
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev according to the overflow policy. Events emitted after
// Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}

	if d.overflow == Drop {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops intake and returns once queued events are delivered. It is
// idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or an ended ctx.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered counts events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
