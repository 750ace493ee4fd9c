// Package rendezvous holds FIFO queues of one-shot waiters keyed by an opaque
// source identity. A queue exists only while it holds at least one waiter.
//
// The map is split into shards selected by xxhash of the source; each shard
// has its own mutex so unrelated sources never contend.
package rendezvous

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Signaler is a one-shot waiter. Signal may be called at most once by the
// coordinator; identity (==) is used by Remove.
type Signaler interface {
	comparable
	Signal()
}

type shard[S Signaler] struct {
	mu     sync.Mutex
	queues map[string][]S
}

// Coordinator is safe for concurrent use.
type Coordinator[S Signaler] struct {
	shards []shard[S]
	mask   uint64
}

// Pow2 rounds n up to a power of two (minimum 1). Use it to turn a configured
// shard or stripe count into one New accepts.
func Pow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// New creates a coordinator with n shards; n must be a power of two.
func New[S Signaler](n int) *Coordinator[S] {
	if n <= 0 || n&(n-1) != 0 {
		panic("rendezvous: shard count must be a positive power of two")
	}
	c := &Coordinator[S]{
		shards: make([]shard[S], n),
		mask:   uint64(n - 1),
	}
	for i := range c.shards {
		c.shards[i].queues = make(map[string][]S)
	}
	return c
}

func (c *Coordinator[S]) shardFor(source string) *shard[S] {
	return &c.shards[xxhash.Sum64String(source)&c.mask]
}

// Add appends s to the queue for source, creating the queue if needed.
func (c *Coordinator[S]) Add(source string, s S) {
	sh := c.shardFor(source)
	sh.mu.Lock()
	sh.queues[source] = append(sh.queues[source], s)
	sh.mu.Unlock()
}

// Remove withdraws s from the queue for source without signaling it and
// reports whether it was queued. The queue is deleted once empty.
func (c *Coordinator[S]) Remove(source string, s S) bool {
	sh := c.shardFor(source)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	q, ok := sh.queues[source]
	if !ok {
		return false
	}
	for i, e := range q {
		if e != s {
			continue
		}
		q = append(q[:i:i], q[i+1:]...)
		if len(q) == 0 {
			delete(sh.queues, source)
		} else {
			sh.queues[source] = q
		}
		return true
	}
	return false
}

// Release pops the oldest waiter for source and signals it. The signal is
// delivered outside the shard lock. Reports whether a waiter was released.
func (c *Coordinator[S]) Release(source string) bool {
	sh := c.shardFor(source)
	sh.mu.Lock()
	q, ok := sh.queues[source]
	if !ok || len(q) == 0 {
		sh.mu.Unlock()
		return false
	}
	head := q[0]
	if len(q) == 1 {
		delete(sh.queues, source)
	} else {
		var zero S
		q[0] = zero
		sh.queues[source] = q[1:]
	}
	sh.mu.Unlock()

	head.Signal()
	return true
}

// Pending returns the total number of queued waiters.
func (c *Coordinator[S]) Pending() int {
	n := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		for _, q := range sh.queues {
			n += len(q)
		}
		sh.mu.Unlock()
	}
	return n
}

// Sources returns the number of sources that currently have a queue.
func (c *Coordinator[S]) Sources() int {
	n := 0
	for i := range c.shards {
		sh := &c.shards[i]
		sh.mu.Lock()
		n += len(sh.queues)
		sh.mu.Unlock()
	}
	return n
}
