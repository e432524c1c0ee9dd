package message

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Inbox pumps envelopes posted to a context into its receiver one at a time.
// Each context runs single-threaded cooperative execution: one envelope's
// handling runs to completion before the next is delivered.
type Inbox struct {
	name string
	ch   chan Envelope
	recv func(Envelope)

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// Inbox errors.
var (
	ErrInboxFull    = errors.New("inbox queue is full")
	ErrInboxStopped = errors.New("inbox is not running")
)

// DefaultInboxBuffer is the queue depth used when none is given.
const DefaultInboxBuffer = 64

// NewInbox creates an inbox for the named context delivering to recv.
func NewInbox(name string, buffer int, recv func(Envelope)) *Inbox {
	if buffer <= 0 {
		buffer = DefaultInboxBuffer
	}
	return &Inbox{
		name: name,
		ch:   make(chan Envelope, buffer),
		recv: recv,
		done: make(chan struct{}),
	}
}

// Name returns the context name this inbox serves.
func (in *Inbox) Name() string { return in.name }

// Start begins delivering queued envelopes.
func (in *Inbox) Start() {
	if in.running.Swap(true) {
		return
	}
	in.wg.Add(1)
	go in.pump()
}

// Stop halts delivery. Envelopes still queued are dropped.
func (in *Inbox) Stop() {
	if !in.running.Swap(false) {
		return
	}
	close(in.done)
	in.wg.Wait()
}

// Port returns the fire-and-forget delivery port for this inbox.
func (in *Inbox) Port() Port {
	return PortFunc(func(env Envelope) error {
		if !in.running.Load() {
			return ErrInboxStopped
		}
		select {
		case in.ch <- env:
			return nil
		default:
			return ErrInboxFull
		}
	})
}

func (in *Inbox) pump() {
	defer in.wg.Done()
	for {
		select {
		case <-in.done:
			return
		case env := <-in.ch:
			in.recv(env)
		}
	}
}
