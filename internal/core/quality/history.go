package quality

import "sync"

// History is a bounded rolling window of recent quality scores.
type History struct {
	mu     sync.Mutex
	scores []float64
	next   int
	full   bool
}

// NewHistory returns a history that keeps the last size scores.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{scores: make([]float64, size)}
}

// Record adds a score, evicting the oldest once the window is full.
func (h *History) Record(score float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.scores[h.next] = score
	h.next = (h.next + 1) % len(h.scores)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of scores currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lenLocked()
}

// Average returns the mean of the held scores, or zero when empty.
func (h *History) Average() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.lenLocked()
	if n == 0 {
		return 0
	}
	var sum float64
	for _, s := range h.scores[:n] {
		sum += s
	}
	return sum / float64(n)
}

func (h *History) lenLocked() int {
	if h.full {
		return len(h.scores)
	}
	return h.next
}
