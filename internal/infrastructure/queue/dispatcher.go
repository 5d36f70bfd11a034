package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/api/metrics"
	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the issue id, guaranteeing per-issue event ordering.
type Dispatcher struct {
	workers  []chan domain.IssueEvent
	recorder ports.AuditRecorder
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder ports.AuditRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.IssueEvent, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.IssueEvent, channelBuffer)
	}
	return d
}

var _ ports.AuditPublisher = (*Dispatcher)(nil)

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish hands an event to the worker responsible for its issue.
// When that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Publish(event domain.IssueEvent) {
	idx := d.shardIndex(event.IssueID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditErrorsTotal.WithLabelValues("queue_full").Inc()
		d.log.Warn().
			Str("issue_id", event.IssueID).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps an issue id deterministically to a worker index.
func (d *Dispatcher) shardIndex(issueID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(issueID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.IssueEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.recorder.Record(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("issue_id", event.IssueID).
					Int("worker_id", id).
					Msg("audit event failed")
			}
		}
	}
}
