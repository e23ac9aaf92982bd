// Package streams implements ReadableStream/WritableStream/TransformStream
// state machines (spec.md §4.8) with byte-accounted back-pressure against a
// per-tenant quota. Kept goja-free; the webapi package binds these to JS
// objects and drives pull()/write()/transform() callbacks through goja.
package streams

import (
	"errors"
	"sync"
)

var (
	// ErrQuotaExceeded is returned by Enqueue once the stream's queued bytes
	// would exceed its owning tenant's max_stream_buffer_bytes.
	ErrQuotaExceeded = errors.New("stream: buffer quota exceeded")
	// ErrClosed is returned by Enqueue/Write on an already-closed stream.
	ErrClosed = errors.New("stream: closed")
	// ErrLocked is returned by GetReader/GetWriter on an already-locked stream.
	ErrLocked = errors.New("stream: already locked")
)

// ChunkSize measures a chunk's size in bytes the way spec.md §4.8 requires:
// a []byte chunk by its length, a string chunk by UTF-8 byte length.
func ChunkSize(chunk interface{}) int64 {
	switch v := chunk.(type) {
	case []byte:
		return int64(len(v))
	case string:
		return int64(len(v))
	default:
		return 0
	}
}

type pendingRead struct {
	resultCh chan readResult
}

type readResult struct {
	value interface{}
	done  bool
	err   error
}

// state mirrors the stream's lifecycle: readable, closed, or errored.
type state int

const (
	stateReadable state = iota
	stateClosed
	stateErrored
)

// Source supplies the optional start/pull/cancel hooks a ReadableStream
// constructor may receive.
type Source struct {
	Start  func(c *Controller) error
	Pull   func(c *Controller) error
	Cancel func(reason interface{}) error
}

// Controller is passed to Source.Start/Pull and to user code via enqueue/
// close/error.
type Controller struct {
	rs *ReadableStream
}

func (c *Controller) Enqueue(chunk interface{}) error { return c.rs.enqueue(chunk) }
func (c *Controller) Close() error                    { return c.rs.closeStream() }
func (c *Controller) Error(err error) error            { return c.rs.errorStream(err) }
func (c *Controller) DesiredSize() int64               { return c.rs.desiredSize() }

// ReadableStream implements the invariants of spec.md §4.8: byte-accounted
// queue against maxBufferBytes, non-overlapping pull, a FIFO of pending
// reads satisfied in order, and tee/pipeTo/pipeThrough composition.
type ReadableStream struct {
	mu             sync.Mutex
	source         Source
	highWaterMark  int64
	maxBufferBytes int64
	queue          [][]byte // queued raw byte chunks, in order
	queuedBytes    int64
	state          state
	err            error
	pulling        bool
	locked         bool
	waiters        []pendingRead
	started        bool
	teeChildren    []*ReadableStream
}

// NewReadableStream constructs a stream with the given source, high-water
// mark (desiredSize threshold for triggering pull), and the owning tenant's
// byte quota.
func NewReadableStream(source Source, highWaterMark, maxBufferBytes int64) *ReadableStream {
	rs := &ReadableStream{
		source:         source,
		highWaterMark:  highWaterMark,
		maxBufferBytes: maxBufferBytes,
		state:          stateReadable,
	}
	return rs
}

// Start invokes source.Start once, then triggers an initial pull if needed.
// Split from the constructor so goja binding can surface a synchronous
// construction-time error to the caller.
func (rs *ReadableStream) Start() error {
	rs.mu.Lock()
	if rs.started {
		rs.mu.Unlock()
		return nil
	}
	rs.started = true
	rs.mu.Unlock()

	if rs.source.Start != nil {
		if err := rs.source.Start(&Controller{rs: rs}); err != nil {
			_ = rs.errorStream(err)
			return err
		}
	}
	rs.maybePull()
	return nil
}

func toBytes(chunk interface{}) []byte {
	switch v := chunk.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func (rs *ReadableStream) enqueue(chunk interface{}) error {
	rs.mu.Lock()
	if rs.state != stateReadable {
		rs.mu.Unlock()
		return ErrClosed
	}
	size := ChunkSize(chunk)
	if rs.maxBufferBytes > 0 && rs.queuedBytes+size > rs.maxBufferBytes {
		rs.mu.Unlock()
		_ = rs.errorStream(ErrQuotaExceeded)
		return ErrQuotaExceeded
	}
	b := toBytes(chunk)

	var waiter *pendingRead
	if len(rs.waiters) > 0 {
		w := rs.waiters[0]
		rs.waiters = rs.waiters[1:]
		waiter = &w
	} else {
		rs.queue = append(rs.queue, b)
		rs.queuedBytes += size
	}
	for _, child := range rs.teeChildren {
		_ = child.enqueue(chunk)
	}
	rs.mu.Unlock()

	if waiter != nil {
		waiter.resultCh <- readResult{value: b}
	}
	return nil
}

func (rs *ReadableStream) closeStream() error {
	rs.mu.Lock()
	if rs.state != stateReadable {
		rs.mu.Unlock()
		return nil
	}
	rs.state = stateClosed
	waiters := rs.waiters
	rs.waiters = nil
	rs.mu.Unlock()
	for _, w := range waiters {
		w.resultCh <- readResult{done: true}
	}
	return nil
}

func (rs *ReadableStream) errorStream(err error) error {
	rs.mu.Lock()
	if rs.state != stateReadable {
		rs.mu.Unlock()
		return nil
	}
	rs.state = stateErrored
	rs.err = err
	waiters := rs.waiters
	rs.waiters = nil
	rs.mu.Unlock()
	for _, w := range waiters {
		w.resultCh <- readResult{err: err}
	}
	return nil
}

func (rs *ReadableStream) desiredSize() int64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.highWaterMark - rs.queuedBytes
}

// maybePull invokes source.Pull if the queue is under the high-water mark
// and no pull is currently outstanding — pulls are never overlapped
// (spec.md §4.8).
func (rs *ReadableStream) maybePull() {
	rs.mu.Lock()
	if rs.pulling || rs.state != stateReadable || rs.source.Pull == nil {
		rs.mu.Unlock()
		return
	}
	if rs.queuedBytes >= rs.highWaterMark {
		rs.mu.Unlock()
		return
	}
	rs.pulling = true
	rs.mu.Unlock()

	err := rs.source.Pull(&Controller{rs: rs})

	rs.mu.Lock()
	rs.pulling = false
	rs.mu.Unlock()

	if err != nil {
		_ = rs.errorStream(err)
	}
}

// Reader is the handle returned by GetReader; it owns the stream's lock.
type Reader struct {
	rs *ReadableStream
}

// GetReader locks the stream for exclusive reading.
func (rs *ReadableStream) GetReader() (*Reader, error) {
	rs.mu.Lock()
	if rs.locked {
		rs.mu.Unlock()
		return nil, ErrLocked
	}
	rs.locked = true
	rs.mu.Unlock()
	return &Reader{rs: rs}, nil
}

// ReadResult is {value, done} per spec.md §4.8; Err is non-nil if the
// stream errored instead of closing.
type ReadResult struct {
	Value []byte
	Done  bool
	Err   error
}

// Read returns the next chunk. If the queue is empty and the stream is
// still readable, it blocks (via a channel) until satisfied by a future
// Enqueue/Close/Error — the FIFO wait-queue behavior spec.md §4.8 requires.
func (r *Reader) Read() ReadResult {
	rs := r.rs
	rs.mu.Lock()
	if len(rs.queue) > 0 {
		chunk := rs.queue[0]
		rs.queue = rs.queue[1:]
		rs.queuedBytes -= int64(len(chunk))
		rs.mu.Unlock()
		rs.maybePull()
		return ReadResult{Value: chunk}
	}
	switch rs.state {
	case stateClosed:
		rs.mu.Unlock()
		return ReadResult{Done: true}
	case stateErrored:
		err := rs.err
		rs.mu.Unlock()
		return ReadResult{Err: err}
	}
	ch := make(chan readResult, 1)
	rs.waiters = append(rs.waiters, pendingRead{resultCh: ch})
	rs.mu.Unlock()

	res := <-ch
	if res.err != nil {
		return ReadResult{Err: res.err}
	}
	if res.done {
		return ReadResult{Done: true}
	}
	return ReadResult{Value: toBytes(res.value)}
}

// ReleaseLock unlocks the stream, allowing a new reader to be acquired.
func (r *Reader) ReleaseLock() {
	r.rs.mu.Lock()
	r.rs.locked = false
	r.rs.mu.Unlock()
}

// Cancel transitions the stream to closed, drops queued chunks, and invokes
// source.Cancel.
func (rs *ReadableStream) Cancel(reason interface{}) error {
	rs.mu.Lock()
	rs.queue = nil
	rs.queuedBytes = 0
	cancel := rs.source.Cancel
	rs.mu.Unlock()
	if err := rs.closeStream(); err != nil {
		return err
	}
	if cancel != nil {
		return cancel(reason)
	}
	return nil
}

// Tee returns two independent readable branches; every Enqueue on the
// parent is mirrored to both. Back-pressure is the looser of the two
// branches since each has its own queue/highWaterMark.
func (rs *ReadableStream) Tee() (*ReadableStream, *ReadableStream) {
	a := NewReadableStream(Source{}, rs.highWaterMark, rs.maxBufferBytes)
	b := NewReadableStream(Source{}, rs.highWaterMark, rs.maxBufferBytes)
	a.started = true
	b.started = true
	rs.mu.Lock()
	rs.teeChildren = append(rs.teeChildren, a, b)
	rs.mu.Unlock()
	return a, b
}
