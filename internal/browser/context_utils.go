package browser

import (
	"context"
)

// CombineContext derives a context from ctx1, inheriting its values (the CDP
// target), that is also cancelled when ctx2 is. ctx1 is the session lifetime,
// ctx2 the caller's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	stop := context.AfterFunc(ctx2, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
