package streams

import (
	"testing"
	"time"
)

func TestReadableStreamEnqueueThenRead(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 0)
	rs.started = true
	if err := rs.enqueue([]byte("hello")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	reader, err := rs.GetReader()
	if err != nil {
		t.Fatalf("getReader: %v", err)
	}
	res := reader.Read()
	if res.Err != nil || res.Done || string(res.Value) != "hello" {
		t.Fatalf("unexpected read result: %+v", res)
	}
}

func TestReadableStreamQuotaExceeded(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 4)
	rs.started = true
	if err := rs.enqueue([]byte("12345")); err != ErrQuotaExceeded {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestReadableStreamPendingReadSatisfiedByLaterEnqueue(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 0)
	rs.started = true
	reader, _ := rs.GetReader()

	resultCh := make(chan ReadResult, 1)
	go func() { resultCh <- reader.Read() }()

	time.Sleep(5 * time.Millisecond)
	_ = rs.enqueue([]byte("later"))

	select {
	case res := <-resultCh:
		if string(res.Value) != "later" {
			t.Fatalf("expected 'later', got %q", res.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pending read to settle")
	}
}

func TestReadableStreamCloseSignalsDone(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 0)
	rs.started = true
	reader, _ := rs.GetReader()
	_ = rs.closeStream()
	res := reader.Read()
	if !res.Done {
		t.Fatalf("expected done after close, got %+v", res)
	}
}

func TestGetReaderLocksStream(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 0)
	rs.started = true
	if _, err := rs.GetReader(); err != nil {
		t.Fatalf("first GetReader: %v", err)
	}
	if _, err := rs.GetReader(); err != ErrLocked {
		t.Fatalf("expected ErrLocked on second GetReader, got %v", err)
	}
}

func TestTeeMirrorsChunksToBothBranches(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 0)
	rs.started = true
	a, b := rs.Tee()
	_ = rs.enqueue([]byte("x"))

	ra, _ := a.GetReader()
	rb, _ := b.GetReader()
	if string(ra.Read().Value) != "x" {
		t.Fatal("branch a did not receive chunk")
	}
	if string(rb.Read().Value) != "x" {
		t.Fatal("branch b did not receive chunk")
	}
}

func TestPipeToClosesDestinationOnDone(t *testing.T) {
	rs := NewReadableStream(Source{}, 1024, 0)
	rs.started = true
	var written []byte
	closed := false
	ws := NewWritableStream(Sink{
		Write: func(chunk interface{}, _ *WriteController) error {
			written = append(written, toBytes(chunk)...)
			return nil
		},
		Close: func() error {
			closed = true
			return nil
		},
	}, 1024)

	done := make(chan error, 1)
	go func() { done <- PipeTo(rs, ws, PipeOptions{}) }()

	_ = rs.enqueue([]byte("abc"))
	_ = rs.closeStream()

	if err := <-done; err != nil {
		t.Fatalf("pipeTo: %v", err)
	}
	if string(written) != "abc" || !closed {
		t.Fatalf("written=%q closed=%v", written, closed)
	}
}

func TestTextEncoderTransform(t *testing.T) {
	ts := TextEncoderTransform(1024, 1024, 0)
	writer, _ := ts.Writable.GetWriter()
	reader, _ := ts.Readable.GetReader()

	if err := writer.Write("hi"); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := reader.Read()
	if string(res.Value) != "hi" {
		t.Fatalf("expected encoded bytes 'hi', got %q", res.Value)
	}
}
