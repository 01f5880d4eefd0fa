package dispatch

import (
	"container/heap"
	"sync"
	"time"
)

// Task is one pending send: a (wave, contact) pair with its rendered-variable
// scope and retry counter. Tasks live only in queue/worker memory; they are
// not persisted and are lost if the process dies.
type Task struct {
	WaveID     string
	CampaignID string
	ContactID  string
	TemplateID string
	Email      string
	Vars       map[string]string
	RetryCount int
}

// delayedTask is a task waiting out its retry backoff.
type delayedTask struct {
	task      *Task
	releaseAt time.Time
}

type retryHeap []delayedTask

func (h retryHeap) Len() int            { return len(h) }
func (h retryHeap) Less(i, j int) bool  { return h[i].releaseAt.Before(h[j].releaseAt) }
func (h retryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *retryHeap) Push(x any)         { *h = append(*h, x.(delayedTask)) }
func (h *retryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// taskQueue is a FIFO of ready tasks plus a min-heap of delayed retries keyed
// by release time. Due retries are folded into the FIFO tail during Pop, so
// one cancellation-aware consumer loop drains both. Retried tasks therefore
// re-enter at the back and do not keep their original relative order.
type taskQueue struct {
	mu      sync.Mutex
	ready   []*Task
	delayed retryHeap
	wake    chan struct{}

	now func() time.Time
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// Push appends tasks to the back of the ready queue.
func (q *taskQueue) Push(tasks ...*Task) {
	q.mu.Lock()
	q.ready = append(q.ready, tasks...)
	q.mu.Unlock()
	q.signal()
}

// PushDelayed schedules a task to become ready after delay.
func (q *taskQueue) PushDelayed(t *Task, delay time.Duration) {
	q.mu.Lock()
	heap.Push(&q.delayed, delayedTask{task: t, releaseAt: q.now().Add(delay)})
	q.mu.Unlock()
	q.signal()
}

// Pop returns the next ready task, waiting up to timeout for one to arrive or
// for a delayed retry to come due. Returns (nil, false) on timeout.
func (q *taskQueue) Pop(timeout time.Duration) (*Task, bool) {
	deadline := q.now().Add(timeout)

	for {
		q.mu.Lock()
		q.releaseDueLocked()
		if len(q.ready) > 0 {
			t := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return t, true
		}

		now := q.now()
		wait := deadline.Sub(now)
		if wait <= 0 {
			q.mu.Unlock()
			return nil, false
		}
		// Wake early if a delayed retry comes due before the deadline.
		if len(q.delayed) > 0 {
			if until := q.delayed[0].releaseAt.Sub(now); until < wait {
				wait = until
			}
		}
		q.mu.Unlock()

		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// releaseDueLocked moves due delayed tasks to the back of the ready queue.
func (q *taskQueue) releaseDueLocked() {
	now := q.now()
	for len(q.delayed) > 0 && !q.delayed[0].releaseAt.After(now) {
		item := heap.Pop(&q.delayed).(delayedTask)
		q.ready = append(q.ready, item.task)
	}
}

// Len returns the number of ready tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// PendingRetries returns the number of tasks waiting on a retry timer.
func (q *taskQueue) PendingRetries() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.delayed)
}

// Empty reports whether no task is ready and no retry timer is pending.
func (q *taskQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) == 0 && len(q.delayed) == 0
}

// CancelPending discards all ready tasks and pending retries, returning the
// discarded tasks so the caller can account for them.
func (q *taskQueue) CancelPending() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Task, 0, len(q.ready)+len(q.delayed))
	out = append(out, q.ready...)
	for _, d := range q.delayed {
		out = append(out, d.task)
	}
	q.ready = nil
	q.delayed = nil
	return out
}

func (q *taskQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
