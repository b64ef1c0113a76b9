package nodes

import (
	"context"
	"time"
)

// withCallTimeout bounds a single outbound call. A zero timeout leaves ctx untouched.
func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
