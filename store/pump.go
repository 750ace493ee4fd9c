package store

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/cachenotify"
)

// pump runs dispatch jobs on a fixed set of workers. A key always hashes to
// the same worker, so jobs for one key run in submission order.
type pump struct {
	queues []chan job
	g      errgroup.Group
	log    cachenotify.Logger

	mu     sync.RWMutex
	closed bool
}

type job struct {
	cache string
	key   string
	typ   cachenotify.EventType
	run   func() error
}

func newPump(workers, qlen int, log cachenotify.Logger) *pump {
	p := &pump{queues: make([]chan job, workers), log: log}
	for i := range p.queues {
		q := make(chan job, qlen)
		p.queues[i] = q
		p.g.Go(func() error {
			for j := range q {
				if err := j.run(); err != nil {
					p.log.Warn("async listener failed", cachenotify.Fields{
						"cache": j.cache, "key": j.key, "type": j.typ.String(), "err": err,
					})
				}
			}
			return nil
		})
	}
	return p
}

// submit blocks while the worker's queue is full. It reports false once the
// pump is closed.
func (p *pump) submit(j job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.queues[xxhash.Sum64String(j.key)%uint64(len(p.queues))] <- j
	return true
}

// close stops intake and waits for queued jobs to finish.
func (p *pump) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()
	return p.g.Wait()
}
