package worker

import (
	"context"
	"sync"
)

type TaskFunc func(context.Context)

// Pool runs submitted tasks on a fixed set of long-lived goroutines. Tasks
// receive the pool's context, which is cancelled by Stop.
type Pool struct {
	size   int
	tasks  chan TaskFunc
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	start  sync.Once
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		size:   size,
		tasks:  make(chan TaskFunc, size*2),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pool) Start() {
	p.start.Do(func() {
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for {
					select {
					case <-p.ctx.Done():
						return
					case fn := <-p.tasks:
						if fn != nil {
							fn(p.ctx)
						}
					}
				}
			}()
		}
	})
}

// Submit queues fn, blocking while the queue is full. It returns false if
// the pool was stopped or ctx ended first; fn will then never run.
func (p *Pool) Submit(ctx context.Context, fn TaskFunc) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	case p.tasks <- fn:
		return true
	}
}

// Stop cancels running tasks and waits for the workers to exit. Tasks still
// queued are then run with the cancelled context so they can clean up.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
	for {
		select {
		case fn := <-p.tasks:
			if fn != nil {
				fn(p.ctx)
			}
		default:
			return
		}
	}
}
