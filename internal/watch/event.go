package watch

import "fmt"

type Kind int

const (
	KindChanged Kind = iota
	KindAdded
	KindError
	KindReady
)

func (k Kind) String() string {
	switch k {
	case KindChanged:
		return "changed"
	case KindAdded:
		return "added"
	case KindError:
		return "error"
	case KindReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Event is a single notification from a Source. Path is absolute for
// KindChanged and KindAdded; Err is set for KindError.
type Event struct {
	Kind Kind
	Path string
	Err  error
}

// Error is a non-fatal watcher failure, such as a subdirectory that could
// not be subscribed to.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("watch: %v", e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
