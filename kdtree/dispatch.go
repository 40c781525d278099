package kdtree

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/node"
	"github.com/katalvlaran/kdforge/kdtree/sweep"
)

// job is a single subtree handed from the dispatcher to a worker: a fully
// formed event list and bounding box ready for the exact event-sweep
// recursion (buildTree), plus the bookkeeping the worker needs to recurse
// correctly and the dispatcher needs to splice the result back in at
// compactification.
type job struct {
	slot       int // index into the dispatcher's own ctx.nodes this job's root logically occupies
	box        geom.AABB
	events     []sweep.Event
	primCount  int
	depth      int
	badRefines int

	// resultWorker/resultSlot are written once, by the worker goroutine
	// that processes this job, before that goroutine ever touches another
	// job. The dispatcher only reads them after workerPool.join returns,
	// so the write happens-before the read via the pool's WaitGroup and no
	// further synchronization is needed.
	resultWorker int
	resultSlot   int
}

// mailbox is the single-slot handoff point between the dispatcher and the
// worker pool: one mutex, two condition variables (one for "a job is
// available", one for "the job was taken"), matching spec 5's description
// of the concurrency primitive exactly. At most one job is ever in flight:
// the dispatcher blocks after publishing until a worker claims it, so a
// second Publish can never race a still-unclaimed first one.
type mailbox struct {
	mu        sync.Mutex
	workAvail *sync.Cond
	jobTaken  *sync.Cond

	pending *job
	taken   bool
	takenBy int
	done    bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.workAvail = sync.NewCond(&m.mu)
	m.jobTaken = sync.NewCond(&m.mu)
	return m
}

// publish hands j to the next available worker and blocks until some
// worker has claimed it, returning that worker's id. Only the dispatcher
// goroutine calls publish.
func (m *mailbox) publish(j *job) int {
	m.mu.Lock()
	m.pending = j
	m.taken = false
	m.workAvail.Broadcast()
	for !m.taken {
		m.jobTaken.Wait()
	}
	id := m.takenBy
	m.mu.Unlock()
	return id
}

// closeMailbox wakes every worker blocked in take so they can observe done
// and exit their loop. Called once, after the dispatcher's own recursion
// finishes.
func (m *mailbox) closeMailbox() {
	m.mu.Lock()
	m.done = true
	m.workAvail.Broadcast()
	m.mu.Unlock()
}

// take blocks until a job is available or the mailbox is closed, in which
// case it returns (nil, false). Called only by worker goroutines.
func (m *mailbox) take(workerID int) (*job, bool) {
	m.mu.Lock()
	for m.pending == nil && !m.done {
		m.workAvail.Wait()
	}
	if m.pending == nil {
		m.mu.Unlock()
		return nil, false
	}
	j := m.pending
	m.pending = nil
	m.taken = true
	m.takenBy = workerID
	m.jobTaken.Signal()
	m.mu.Unlock()
	return j, true
}

// workerPool owns the goroutines, their per-thread build contexts, and the
// recovered-panic-as-error discipline the rest of this module follows: a
// worker never panics its goroutine out from under the dispatcher, it
// captures the panic and reports it as an error after Wait, matching how
// the teacher's own concurrent algorithms surface failures.
type workerPool struct {
	mb       *mailbox
	ctxs     []*buildContext
	offloads map[int]*job // dispatcher-local node slot -> the job built on its behalf
	errs     []error
	wg       sync.WaitGroup
}

func newWorkerPool(n int, globalPrimCount, bins int) *workerPool {
	p := &workerPool{
		mb:       newMailbox(),
		ctxs:     make([]*buildContext, n),
		offloads: make(map[int]*job),
		errs:     make([]error, n),
	}
	for i := 0; i < n; i++ {
		p.ctxs[i] = newBuildContext(globalPrimCount, bins)
	}
	return p
}

func (p *workerPool) start(b *builder) {
	for i := range p.ctxs {
		p.wg.Add(1)
		go p.runWorker(b, i)
	}
}

func (p *workerPool) runWorker(b *builder, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.errs[id] = fmt.Errorf("kdtree: worker %d panicked: %v", id, r)
		}
	}()
	ctx := p.ctxs[id]
	for {
		j, ok := p.mb.take(id)
		if !ok {
			return
		}
		slot := ctx.nodes.Push(node.Node{})
		j.resultWorker = id
		j.resultSlot = slot
		b.buildTree(ctx, slot, j.box, j.events, j.primCount, j.depth, j.badRefines)
	}
}

// offload publishes j and records, in the dispatcher-only offloads map,
// that the subtree logically rooted at j.slot in the dispatcher's own
// context is actually being built by whichever worker claims it. Only the
// dispatcher goroutine calls offload.
func (p *workerPool) offload(j *job) {
	p.mb.publish(j)
	p.offloads[j.slot] = j
}

// join waits for every worker to exit and returns the first captured
// worker error, if any.
func (p *workerPool) join() error {
	p.mb.closeMailbox()
	p.wg.Wait()
	for _, e := range p.errs {
		if e != nil {
			return e
		}
	}
	return nil
}
