package feedback

import "fmt"

// ReadError means the changed file could not be read; the model is not
// called.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// InvocationError wraps a model call or stream failure. Output already
// written stays on the sink.
type InvocationError struct {
	Model string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
