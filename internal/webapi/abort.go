package webapi

import "sync"

// AbortSignal models AbortSignal: a one-shot, observable cancellation flag.
type AbortSignal struct {
	mu        sync.Mutex
	aborted   bool
	reason    interface{}
	listeners []func(reason interface{})
}

func newAbortSignal() *AbortSignal { return &AbortSignal{} }

func (s *AbortSignal) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *AbortSignal) Reason() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// ThrowIfAborted returns the abort reason if the signal has fired, nil
// otherwise — Go has no exception channel, so callers check the return.
func (s *AbortSignal) ThrowIfAborted() interface{} {
	return s.Reason()
}

// AddEventListener registers a callback invoked once, at most, when the
// signal aborts (immediately, if it already has).
func (s *AbortSignal) AddEventListener(fn func(reason interface{})) {
	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return
	}
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *AbortSignal) fire(reason interface{}) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	if reason == nil {
		reason = "AbortError"
	}
	s.reason = reason
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()
	for _, l := range listeners {
		l(reason)
	}
}

// AbortController pairs a signal with the ability to fire it.
type AbortController struct {
	signal *AbortSignal
}

func NewAbortController() *AbortController {
	return &AbortController{signal: newAbortSignal()}
}

func (c *AbortController) Signal() *AbortSignal { return c.signal }
func (c *AbortController) Abort(reason interface{}) { c.signal.fire(reason) }

// TimerScheduler is the one capability TimeoutSignal needs from a timer
// source: run callback once after delayMs milliseconds.
type TimerScheduler interface {
	AddTimer(delayMs int64, callback func())
}

// TimeoutSignal returns a signal that aborts with "TimeoutError" ms
// milliseconds from now; the timer is scheduled on sched immediately.
func TimeoutSignal(ms int64, sched TimerScheduler) *AbortSignal {
	s := newAbortSignal()
	sched.AddTimer(ms, func() {
		s.fire("TimeoutError")
	})
	return s
}
