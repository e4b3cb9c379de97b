// Package history keeps the bounded chat backlog of a room.
package history

import "time"

// Message is a single accepted chat line.
type Message struct {
	Name      string    `json:"name"`
	Text      string    `json:"message"`
	Color     string    `json:"color"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is a fixed-capacity ring of messages. Appending to a full log evicts
// the oldest entry. View returns at most the last view entries, which is what
// a newly joined connection gets replayed.
type Log struct {
	buf   []Message
	start int
	n     int
	view  int
}

// New creates a Log retaining capacity messages and exposing the most recent
// view of them. A view larger than capacity is clamped.
func New(capacity, view int) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	if view <= 0 || view > capacity {
		view = capacity
	}
	return &Log{
		buf:  make([]Message, capacity),
		view: view,
	}
}

// Append stores msg, dropping the oldest retained message on overflow.
func (l *Log) Append(msg Message) {
	capacity := len(l.buf)
	if l.n < capacity {
		l.buf[(l.start+l.n)%capacity] = msg
		l.n++
		return
	}
	l.buf[l.start] = msg
	l.start = (l.start + 1) % capacity
}

// Len returns the number of retained messages.
func (l *Log) Len() int {
	return l.n
}

// Cap returns the retention limit.
func (l *Log) Cap() int {
	return len(l.buf)
}

// All returns every retained message, oldest first.
func (l *Log) All() []Message {
	return l.last(l.n)
}

// View returns the replayable suffix, oldest first.
func (l *Log) View() []Message {
	return l.last(l.view)
}

func (l *Log) last(k int) []Message {
	if k > l.n {
		k = l.n
	}
	out := make([]Message, k)
	capacity := len(l.buf)
	offset := l.n - k
	for i := 0; i < k; i++ {
		out[i] = l.buf[(l.start+offset+i)%capacity]
	}
	return out
}
