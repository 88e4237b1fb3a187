package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/openlearn/edusync/internal/model"
)

// API is the narrow capability the sync driver depends on: one logical
// endpoint per (entity type, action) pair plus a bulk pull. Transport is
// owned by the implementation.
type API interface {
	Submit(ctx context.Context, entityType model.EntityType, action model.Action, payload []byte) error
	PullAll(ctx context.Context, entityTypes []model.EntityType) ([]model.Envelope, error)
}

// ErrUnavailable marks a transient transport-level failure (circuit open,
// connection refused). Retried on the next drain.
var ErrUnavailable = errors.New("remote unavailable")

// PermanentError is a remote rejection that will not succeed on retry
// (validation failure, conflict). The driver treats it like any other
// failure unless a max-attempts budget is configured.
type PermanentError struct {
	Status int
	Body   string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("remote rejected request: status=%d body=%q", e.Status, e.Body)
}

// IsPermanent reports whether err is a non-retryable remote rejection.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
