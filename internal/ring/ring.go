// Package ring implements a small byte-capacity-bounded queue used to hold
// the "recent log tail" diagnostic attached to a failed operation. It
// never blocks a producer: once a line would push the buffer past
// its byte cap, the incoming line is dropped rather than evicting queued
// lines; an empty buffer always accepts its first line even if that one
// line alone exceeds the cap.
package ring

import "errors"

// errClosed is returned by Enqueue/Dequeue once the buffer has been
// closed; queued entries remain readable via Drain.
var errClosed = errors.New("ring: closed")

// ErrClosed is the exported form of errClosed for callers outside this
// package that need to compare with errors.Is.
var ErrClosed = errClosed

// Line is one queued entry; size reports its footprint against the
// buffer's byte capacity.
type Line struct {
	Text string
}

func (l *Line) size() int { return len(l.Text) }

// Buffer is a FIFO of Lines bounded by total byte size rather than count,
// matching moby's daemon/logger ring semantics exactly.
type Buffer struct {
	maxBytes  int
	sizeBytes int
	queue     []*Line
	closed    bool
}

// New creates a Buffer that holds at most maxBytes of queued Line text.
// A non-positive maxBytes means unbounded.
func New(maxBytes int) *Buffer {
	return &Buffer{maxBytes: maxBytes}
}

// Enqueue appends line if it fits within the remaining byte cap, or if the
// buffer is currently empty (so a single oversized line is never
// unqueueable outright). Otherwise it silently drops line; Enqueue only
// ever fails once the buffer has been closed.
func (r *Buffer) Enqueue(line *Line) error {
	if r.closed {
		return errClosed
	}
	fits := r.maxBytes <= 0 || len(r.queue) == 0 || r.sizeBytes+line.size() <= r.maxBytes
	if !fits {
		return nil
	}
	r.queue = append(r.queue, line)
	r.sizeBytes += line.size()
	return nil
}

// Dequeue removes and returns the oldest queued line.
func (r *Buffer) Dequeue() (*Line, error) {
	if r.closed {
		return nil, errClosed
	}
	if len(r.queue) == 0 {
		return nil, nil
	}
	l := r.queue[0]
	r.queue = r.queue[1:]
	r.sizeBytes -= l.size()
	return l, nil
}

// Drain removes and returns every queued line, in order, regardless of
// closed state, and resets the buffer's size accounting to zero.
func (r *Buffer) Drain() []*Line {
	out := r.queue
	r.queue = nil
	r.sizeBytes = 0
	return out
}

// Tail returns the text of up to n most recent lines, oldest first,
// without draining the buffer.
func (r *Buffer) Tail(n int) []string {
	if n <= 0 || len(r.queue) == 0 {
		return nil
	}
	start := 0
	if len(r.queue) > n {
		start = len(r.queue) - n
	}
	out := make([]string, 0, len(r.queue)-start)
	for _, l := range r.queue[start:] {
		out = append(out, l.Text)
	}
	return out
}

// Close marks the buffer closed; further Enqueue/Dequeue calls fail with
// ErrClosed, but Drain still returns whatever remains queued.
func (r *Buffer) Close() error {
	r.closed = true
	return nil
}
