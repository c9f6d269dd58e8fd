// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// A small keyed worker pool. Every key gets its own queue, so tasks with the same key
// run one at a time and in submission order, while different keys never wait on each
// other's queues. At most `workers` tasks run at once.

type Task func(ctx context.Context) error

var ErrPoolStopped = errors.New("worker pool stopped")

type lane struct {
	tasks chan Task
	refs  int // submitters holding the lane
}

type Pool struct {
	mu      sync.Mutex
	lanes   map[int64]*lane
	ctx     context.Context
	stopped bool

	wg    sync.WaitGroup
	slots chan struct{}
	depth int
	quit  chan struct{}
	log   *zerolog.Logger
}

func NewPool(workers, depth int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if depth <= 0 {
		depth = 16
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{
		lanes: make(map[int64]*lane),
		ctx:   context.Background(),
		slots: make(chan struct{}, workers),
		depth: depth,
		quit:  make(chan struct{}),
		log:   logger,
	}
}

// Start sets the context tasks run with. Lanes are started on demand by Submit.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

// Stop signals lanes to exit and waits for in-flight tasks. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.quit)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues task on the lane owning key. It blocks while that lane's queue is
// full, until ctx is done or the pool stops.
func (p *Pool) Submit(ctx context.Context, key int64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	l, ok := p.lanes[key]
	if !ok {
		l = &lane{tasks: make(chan Task, p.depth)}
		p.lanes[key] = l
		p.wg.Add(1)
		go p.run(p.ctx, key, l)
	}
	l.refs++
	p.mu.Unlock()

	var err error
	select {
	case l.tasks <- task:
	case <-p.quit:
		err = ErrPoolStopped
	case <-ctx.Done():
		err = ctx.Err()
	}

	p.mu.Lock()
	l.refs--
	if err != nil && l.refs == 0 && len(l.tasks) == 0 {
		// wake an idle lane so it can retire
		select {
		case l.tasks <- nil:
		default:
		}
	}
	p.mu.Unlock()
	return err
}

func (p *Pool) run(ctx context.Context, key int64, l *lane) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.retire(key, l)
			return
		case <-p.quit:
			return
		case task := <-l.tasks:
			if task != nil && !p.exec(ctx, key, task) {
				p.retire(key, l)
				return
			}
		}

		p.mu.Lock()
		if len(l.tasks) == 0 && l.refs == 0 {
			delete(p.lanes, key)
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// exec runs task once a slot is free. It reports false when the pool is shutting down.
func (p *Pool) exec(ctx context.Context, key int64, task Task) bool {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return false
	case <-p.quit:
		return false
	}
	defer func() { <-p.slots }()

	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int64("key", key).Msg("task error")
	}
	return true
}

func (p *Pool) retire(key int64, l *lane) {
	p.mu.Lock()
	if p.lanes[key] == l {
		delete(p.lanes, key)
	}
	p.mu.Unlock()
}

// lanesLen reports the number of live lanes.
func (p *Pool) lanesLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lanes)
}
