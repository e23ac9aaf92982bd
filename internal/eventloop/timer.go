package eventloop

import "time"

// timerID is a stable, monotonically increasing identifier handed back from
// AddTimer; ids are never reused within a Loop's lifetime.
type timerID uint64

type timer struct {
	id       timerID
	deadline time.Time
	interval time.Duration // zero for one-shot timers
	callback func()
	active   bool
	seq      uint64 // tiebreaker so equal deadlines fire in creation order
}

// timerHeap is a min-heap ordered by (deadline, seq), matching spec.md
// §4.2's "timer callbacks with identical deadlines fire in creation order".
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
