package streams

// Transformer supplies the transform/flush hooks a TransformStream's
// transformer argument may provide.
type Transformer struct {
	Start     func(c *Controller) error
	Transform func(chunk interface{}, c *Controller) error
	Flush     func(c *Controller) error
}

// TransformStream connects a Readable and a Writable through a transformer:
// every chunk written to Writable is passed through Transformer.Transform,
// which may enqueue zero or more chunks onto Readable. An enqueue never
// waits for a reader, so a Write does not block on a full Readable; once
// Readable's byte quota (when set) is exceeded, the enqueue fails, Readable
// errors, and Write returns that error.
type TransformStream struct {
	Readable *ReadableStream
	Writable *WritableStream
}

// NewTransformStream wires sink.Write to call transformer.Transform with a
// controller bound to the readable side, and sink.Close to call
// transformer.Flush then close the readable side.
func NewTransformStream(t Transformer, writableHWM, readableHWM, maxBufferBytes int64) *TransformStream {
	readable := NewReadableStream(Source{}, readableHWM, maxBufferBytes)
	readable.started = true
	controller := &Controller{rs: readable}

	sink := Sink{
		Write: func(chunk interface{}, _ *WriteController) error {
			if t.Transform != nil {
				return t.Transform(chunk, controller)
			}
			return controller.Enqueue(chunk)
		},
		Close: func() error {
			if t.Flush != nil {
				if err := t.Flush(controller); err != nil {
					return err
				}
			}
			return controller.Close()
		},
		Abort: func(reason interface{}) error {
			return readable.errorStream(toError(reason))
		},
	}
	if t.Start != nil {
		_ = t.Start(controller)
	}
	writable := NewWritableStream(sink, writableHWM)
	return &TransformStream{Readable: readable, Writable: writable}
}

func toError(v interface{}) error {
	if err, ok := v.(error); ok {
		return err
	}
	return errAbortedf(v)
}

type abortedError struct{ reason interface{} }

func (e *abortedError) Error() string { return "stream aborted" }

func errAbortedf(reason interface{}) error { return &abortedError{reason: reason} }

// TextEncoderTransform and TextDecoderTransform are the TransformStreams
// backing TextEncoderStream/TextDecoderStream (spec.md §4.8): each chunk is
// encoded/decoded independently since UTF-8 boundaries are byte-aligned per
// chunk in this runtime's simplified model (no partial multi-byte sequence
// carried across chunk boundaries).
func TextEncoderTransform(writableHWM, readableHWM, maxBufferBytes int64) *TransformStream {
	return NewTransformStream(Transformer{
		Transform: func(chunk interface{}, c *Controller) error {
			s, _ := chunk.(string)
			return c.Enqueue([]byte(s))
		},
	}, writableHWM, readableHWM, maxBufferBytes)
}

func TextDecoderTransform(writableHWM, readableHWM, maxBufferBytes int64) *TransformStream {
	return NewTransformStream(Transformer{
		Transform: func(chunk interface{}, c *Controller) error {
			b := toBytes(chunk)
			return c.Enqueue(string(b))
		},
	}, writableHWM, readableHWM, maxBufferBytes)
}
