package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chatguard/chatguard/automod/engine"

	"github.com/prometheus/client_golang/prometheus"
)

type HandlerFunc func(ctx context.Context, item *engine.ContentItem) error

// Dispatcher runs content item evaluations on a fixed number of workers, off the event receipt path. Work for the same item (eg, a create followed by an edit) is processed in order; unrelated items run concurrently.
type Dispatcher struct {
	maxConcurrency int
	timeout        time.Duration

	do HandlerFunc

	feeder chan *dispatchTask
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*dispatchTask

	shutdownOnce sync.Once

	ident string

	// metrics
	itemsAdded     prometheus.Counter
	itemsProcessed prometheus.Counter
	itemsActive    prometheus.Counter
	workersActive  prometheus.Gauge

	log *slog.Logger
}

// Per-item deadline for handler execution
const DefaultItemTimeout = 2 * time.Minute

func NewDispatcher(maxC, maxQ int, ident string, do HandlerFunc) *Dispatcher {
	p := &Dispatcher{
		maxConcurrency: maxC,
		timeout:        DefaultItemTimeout,

		do: do,

		feeder: make(chan *dispatchTask, maxQ),
		active: make(map[string][]*dispatchTask),
		out:    make(chan struct{}),

		ident: ident,

		itemsAdded:     workItemsAdded.WithLabelValues(ident),
		itemsProcessed: workItemsProcessed.WithLabelValues(ident),
		itemsActive:    workItemsActive.WithLabelValues(ident),
		workersActive:  workersActive.WithLabelValues(ident),

		log: slog.Default().With("system", "dispatcher"),
	}

	for i := 0; i < maxC; i++ {
		go p.worker()
	}

	p.workersActive.Set(float64(maxC))

	return p
}

// Waits for queued work to finish, then stops all workers. AddWork must not be called after (or concurrently with) Shutdown. Repeated calls are no-ops.
func (p *Dispatcher) Shutdown() {
	p.shutdownOnce.Do(p.shutdown)
}

func (p *Dispatcher) shutdown() {
	p.log.Info("shutting down dispatcher", "ident", p.ident)

	for i := 0; i < p.maxConcurrency; i++ {
		p.feeder <- &dispatchTask{
			control: "stop",
		}
	}

	close(p.feeder)

	for i := 0; i < p.maxConcurrency; i++ {
		<-p.out
	}
	p.workersActive.Set(0)

	p.log.Info("dispatcher shutdown complete")
}

type dispatchTask struct {
	key     string
	val     *engine.ContentItem
	control string
}

func itemKey(item *engine.ContentItem) string {
	return fmt.Sprintf("%s/%s/%s", item.ServerID, item.Kind, item.ID)
}

// Queues an item for evaluation. Blocks if the queue is full, until the context is done.
func (p *Dispatcher) AddWork(ctx context.Context, item *engine.ContentItem) error {
	p.itemsAdded.Inc()
	t := &dispatchTask{
		key: itemKey(item),
		val: item,
	}
	p.lk.Lock()

	a, ok := p.active[t.key]
	if ok {
		p.active[t.key] = append(a, t)
		p.lk.Unlock()
		return nil
	}

	p.active[t.key] = []*dispatchTask{}
	p.lk.Unlock()

	select {
	case p.feeder <- t:
		return nil
	case <-ctx.Done():
		// the item never reached a worker; drop it, along with anything queued behind it
		p.lk.Lock()
		delete(p.active, t.key)
		p.lk.Unlock()
		return ctx.Err()
	}
}

func (p *Dispatcher) run(item *engine.ContentItem) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.do(ctx, item); err != nil {
		p.log.Error("content item handler failed", "server", item.ServerID, "item", item.ID, "err", err)
	}
}

func (p *Dispatcher) worker() {
	for work := range p.feeder {
		for work != nil {
			if work.control == "stop" {
				p.out <- struct{}{}
				return
			}

			p.itemsActive.Inc()
			p.run(work.val)
			p.itemsProcessed.Inc()

			p.lk.Lock()
			rem, ok := p.active[work.key]
			if !ok {
				p.log.Error("should always have an 'active' entry if a worker is processing a job")
			}

			if len(rem) == 0 {
				delete(p.active, work.key)
				work = nil
			} else {
				work = rem[0]
				p.active[work.key] = rem[1:]
			}
			p.lk.Unlock()
		}
	}
}
