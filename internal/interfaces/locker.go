package interfaces

import (
	"context"
	"errors"
)

var ErrLockHeld = errors.New("lock is held by another operation")

// Locker grants short-lived exclusive access to a key. The returned release
// function is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
