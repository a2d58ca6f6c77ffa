package logbuf

import "sync"

// DefaultCapacity is the number of lines a Ring keeps by default.
const DefaultCapacity = 1000

// Ring is a bounded, append-only buffer of formatted log lines.
// When full, the oldest lines are silently dropped.
type Ring struct {
	mu    sync.Mutex
	lines []string
	cap   int
	start int
	count int
}

// NewRing creates a ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		lines: make([]string, capacity),
		cap:   capacity,
	}
}

// Append adds a line, evicting the oldest when the ring is full.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.cap {
		r.lines[(r.start+r.count)%r.cap] = line
		r.count++
		return
	}

	r.lines[r.start] = line
	r.start = (r.start + 1) % r.cap
}

// Lines returns the buffered lines in FIFO order.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.lines[(r.start+i)%r.cap]
	}
	return out
}

// Len returns the number of buffered lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Clear drops all buffered lines.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = 0
	r.count = 0
}
