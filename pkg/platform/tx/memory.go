package tx

import (
	"context"
	"sync"
	"time"

	dErrors "civitas/pkg/domain-errors"
)

const defaultMemoryTxTimeout = 5 * time.Second

// MemoryRunner serializes callbacks behind one mutex, giving in-memory
// stores the same isolation the Postgres runner gets from serializable
// transactions. A coarse lock is deliberate: every engine write re-reads all
// sibling rows of its parent aggregate, so per-key sharding would not
// prevent read skew between siblings.
type MemoryRunner struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{timeout: defaultMemoryTxTimeout}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}
