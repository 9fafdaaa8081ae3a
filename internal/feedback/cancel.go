package feedback

import (
	"context"
	"errors"
)

// ErrCancelled is reported for a dispatch cut short by shutdown.
var ErrCancelled = errors.New("feedback cancelled")

func normalizeCancellationErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return err
}

// IsCancelled reports whether err came from context cancellation rather
// than a failed read or model call.
func IsCancelled(err error) bool {
	return errors.Is(normalizeCancellationErr(err), ErrCancelled)
}
