package services

import (
	"context"
	"sync"
)

// background runs detached work such as event publishes and tracks it so
// shutdown can wait before the producer is closed.
type background struct {
	wg sync.WaitGroup
}

func (b *background) spawn(f func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f()
	}()
}

// wait blocks until every spawned function has returned or ctx is done.
func (b *background) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
