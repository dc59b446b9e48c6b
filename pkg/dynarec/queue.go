package dynarec

import (
	"context"
	"sync"
)

// writeQueue serializes mutations on a single record. Each caller claims a
// slot behind the most recently scheduled mutation and waits for it to
// finish (success or failure) before starting its own, giving at most one
// in-flight store mutation per record and a total order matching call order.
type writeQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// enter blocks until every previously scheduled mutation has completed,
// then claims the queue. The returned release function must be called
// exactly once when the mutation finishes.
//
// If ctx is cancelled while waiting, the claimed slot is abandoned: it
// resolves on its own once the predecessor finishes, so successors are
// never blocked by a mutation that never ran.
func (q *writeQueue) enter(ctx context.Context) (release func(), err error) {
	q.mu.Lock()
	prev := q.tail
	cur := make(chan struct{})
	q.tail = cur
	q.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				close(cur)
			}()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(func() { close(cur) }) }, nil
}
