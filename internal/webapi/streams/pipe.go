package streams

// PipeOptions mirrors pipeTo's {preventClose, preventAbort, preventCancel}.
type PipeOptions struct {
	PreventClose  bool
	PreventAbort  bool
	PreventCancel bool
}

// PipeTo reads rs until done, writing each chunk to dest, then closes dest
// unless PreventClose. An error on either side propagates to the other
// unless suppressed by PreventAbort/PreventCancel (spec.md §4.8).
func PipeTo(rs *ReadableStream, dest *WritableStream, opts PipeOptions) error {
	reader, err := rs.GetReader()
	if err != nil {
		return err
	}
	defer reader.ReleaseLock()

	writer, err := dest.GetWriter()
	if err != nil {
		return err
	}
	defer writer.ReleaseLock()

	for {
		res := reader.Read()
		if res.Err != nil {
			if !opts.PreventAbort {
				_ = writer.Abort(res.Err)
			}
			return res.Err
		}
		if res.Done {
			if !opts.PreventClose {
				return writer.Close()
			}
			return nil
		}
		if err := writer.Write(res.Value); err != nil {
			if !opts.PreventCancel {
				_ = rs.Cancel(err)
			}
			return err
		}
	}
}

// PipeThrough composes rs -> ts.Writable and returns ts.Readable, running
// the pipe in a background goroutine since JS callers expect pipeThrough to
// return the readable side immediately.
func PipeThrough(rs *ReadableStream, ts *TransformStream) *ReadableStream {
	go func() {
		_ = PipeTo(rs, ts.Writable, PipeOptions{})
	}()
	return ts.Readable
}

// FromIterable adapts a synchronous Go iterator (next returns (chunk, ok))
// into a ReadableStream whose pull enqueues one chunk per call and closes
// the stream once next reports false. The JS ReadableStream global has no
// from method, and nothing in webapi calls FromIterable.
func FromIterable(next func() (interface{}, bool), highWaterMark, maxBufferBytes int64) *ReadableStream {
	rs := NewReadableStream(Source{
		Pull: func(c *Controller) error {
			chunk, ok := next()
			if !ok {
				return c.Close()
			}
			return c.Enqueue(chunk)
		},
	}, highWaterMark, maxBufferBytes)
	return rs
}
