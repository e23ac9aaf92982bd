// Package eventloop is the single cooperative event loop (spec.md §4.2)
// driving timers, the config-watcher poll, and every async completion that
// must settle a promise on the tenant's main thread — fetch() round trips,
// stream reads/writes, and crypto.subtle operations alike. Every method
// that touches the timer heap runs on the owning Tenant's single goroutine;
// PostCompletion is the one entry point safe to call from any goroutine.
package eventloop

import (
	"container/heap"
	"sync"
	"time"
)

// CompletedTask is what a worker goroutine hands back to the loop once its
// background work (an HTTP round trip, a stream pull, a digest) is done.
// Resolve runs on the main thread during DrainCompletions and is the only
// place that may touch the goja runtime for that task.
type CompletedTask struct {
	TaskID  uint64
	Resolve func()
}

// Loop is a single-threaded, non-blocking scheduler. It owns no goroutine of
// its own: the Request Engine's spin loop (§4.9) drives it by calling Tick
// or RunOnce between checks of its own deadline.
type Loop struct {
	mu       sync.Mutex
	heap     timerHeap
	byID     map[timerID]*timer
	nextID   timerID
	nextSeq  uint64
	pending  []CompletedTask
	inFlight int
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{byID: make(map[timerID]*timer)}
}

// AddTimer schedules callback to run after delay (interval > 0 re-arms it
// every interval instead of firing once). Returns a stable id usable with
// CancelTimer.
func (l *Loop) AddTimer(delay time.Duration, interval time.Duration, callback func()) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.nextSeq++
	t := &timer{
		id:       l.nextID,
		deadline: time.Now().Add(delay),
		interval: interval,
		callback: callback,
		active:   true,
		seq:      l.nextSeq,
	}
	l.byID[t.id] = t
	heap.Push(&l.heap, t)
	return uint64(t.id)
}

// CancelTimer marks a timer inactive. Returns false if the id is unknown or
// already cancelled. Safe to call from within the timer's own callback: an
// interval cancelled mid-callback is not re-armed (spec.md §4.2).
func (l *Loop) CancelTimer(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.byID[timerID(id)]
	if !ok || !t.active {
		return false
	}
	t.active = false
	delete(l.byID, timerID(id))
	return true
}

// HasPendingWork reports whether any timer is active or any background task
// (fetch, stream I/O, crypto) is in-flight — the Request Engine's spin-exit
// condition.
func (l *Loop) HasPendingWork() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID) > 0 || l.inFlight > 0 || len(l.pending) > 0
}

// Tick runs one non-blocking iteration: fires every timer whose deadline has
// passed, in deadline then creation order, and re-arms intervals.
func (l *Loop) Tick() {
	now := time.Now()
	for {
		due, ok := l.popDue(now)
		if !ok {
			return
		}
		due.callback()
	}
}

// popDue removes and returns the earliest timer due at or before now,
// re-arming it first if it's an interval still active after its callback
// scope (re-arm happens before invocation so a callback that calls
// CancelTimer on itself correctly suppresses the next firing).
func (l *Loop) popDue(now time.Time) (*timer, bool) {
	l.mu.Lock()
	if l.heap.Len() == 0 || l.heap[0].deadline.After(now) {
		l.mu.Unlock()
		return nil, false
	}
	t := heap.Pop(&l.heap).(*timer)
	if !t.active {
		l.mu.Unlock()
		return l.popDue(now)
	}
	if t.interval > 0 {
		t.deadline = now.Add(t.interval)
		t.seq = l.nextSeqLocked()
		heap.Push(&l.heap, t)
	} else {
		delete(l.byID, t.id)
	}
	l.mu.Unlock()
	return t, true
}

func (l *Loop) nextSeqLocked() uint64 {
	l.nextSeq++
	return l.nextSeq
}

// RunOnce sleeps until the next timer's deadline, never longer than maxWait
// and not at all when completions are already queued, then runs Tick. A
// completion posted while it sleeps does not wake it early, and RunOnce
// does not collect completions itself; DrainCompletions does that.
func (l *Loop) RunOnce(maxWait time.Duration) {
	wait := l.nextWait(maxWait)
	if wait > 0 {
		time.Sleep(wait)
	}
	l.Tick()
}

func (l *Loop) nextWait(maxWait time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) > 0 {
		return 0
	}
	if l.heap.Len() == 0 {
		return maxWait
	}
	d := time.Until(l.heap[0].deadline)
	if d < 0 {
		return 0
	}
	if d > maxWait {
		return maxWait
	}
	return d
}

// PostCompletion enqueues a finished background task. Safe to call from any
// goroutine; it decrements the in-flight counter incremented by
// RegisterTask. The Resolve closure itself must not run here — it only
// runs once DrainCompletions is called back on the main thread.
func (l *Loop) PostCompletion(c CompletedTask) {
	l.mu.Lock()
	l.pending = append(l.pending, c)
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.mu.Unlock()
}

// RegisterTask increments the in-flight task counter; call it before
// spawning the worker goroutine that will eventually PostCompletion.
func (l *Loop) RegisterTask() {
	l.mu.Lock()
	l.inFlight++
	l.mu.Unlock()
}

// DrainCompletions moves every queued completion out under the lock —
// main-thread only, exactly as spec.md §4.2 requires. The caller must run
// each entry's Resolve after draining, still on the main thread.
func (l *Loop) DrainCompletions() []CompletedTask {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	out := l.pending
	l.pending = nil
	return out
}
