package events

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const DefaultBuffer = 64

type envelope struct {
	name    string
	payload any
}

// Async delivers events to another sink from a single background goroutine.
// Emit never blocks: when the buffer is full the event is dropped and
// counted.
type Async struct {
	next Sink
	log  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	ch      chan envelope
	done    chan struct{}
	dropped atomic.Uint64
}

// NewAsync starts delivering to next. Call Close to flush and stop.
func NewAsync(next Sink, buffer int, log zerolog.Logger) *Async {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	a := &Async{
		next: Guard(next, log),
		log:  log,
		ch:   make(chan envelope, buffer),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Emit(name string, payload any) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}

	select {
	case a.ch <- envelope{name: name, payload: payload}:
	default:
		a.dropped.Add(1)
		a.log.Warn().Str("event", name).Msg("event buffer full, dropping event")
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until buffered ones are delivered.
// It is safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.ch {
		a.next.Emit(ev.name, ev.payload)
	}
}
