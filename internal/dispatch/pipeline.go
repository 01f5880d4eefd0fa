// Package dispatch implements the outbound send pipeline: a rate-limited
// FIFO queue with delayed-retry scheduling, drained by a single consumer
// goroutine that drives the mail provider and reconciles per-recipient
// status against the store.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
	"github.com/Berkaniis/survey-tool/internal/provider"
)

// State is the lifecycle of the consumer goroutine.
type State string

const (
	StateIdle     State = "IDLE"
	StateRunning  State = "RUNNING"
	StateDraining State = "DRAINING"
)

// StatusTransition is the recipient-status side of one attempt outcome.
// A nil Status means only the error message and retry count are recorded.
type StatusTransition struct {
	CampaignID   string
	ContactID    string
	Status       domain.RecipientStatus
	SentAt       *time.Time
	ErrorMessage string
	RetryCount   int
}

// Attempt bundles everything one send attempt writes to the store. The
// MailLog append and the status transition must commit in one transaction:
// no log row without its status effect, no status change without its row.
type Attempt struct {
	Log         domain.MailLog
	Transition  *StatusTransition
	SentDelta   int
	FailedDelta int
}

// Store is the persistence surface the pipeline consumes.
type Store interface {
	GetTemplate(ctx context.Context, id string) (domain.EmailTemplate, error)
	RecordAttempt(ctx context.Context, a Attempt) error
	CompleteWave(ctx context.Context, waveID string, status domain.WaveStatus, completedAt time.Time) error
}

// ProgressFunc is invoked after each terminal task outcome. Panics from the
// callback are swallowed; a broken UI hook must not stop the worker.
type ProgressFunc func(waveID string, success bool)

// Options tunes the pipeline. Zero values fall back to the defaults below.
type Options struct {
	MaxRetries  int
	RetryDelays []time.Duration
	PopTimeout  time.Duration
	Quota       *DailyQuota
	Progress    ProgressFunc

	// quotaRequeueDelay is how long a task waits when the daily quota is
	// exhausted. Overridable in tests.
	quotaRequeueDelay time.Duration
}

// Pipeline owns the dispatch queue, the rate limiter and the single consumer
// goroutine. Producers enqueue waves; exactly one goroutine drives the
// provider, because the underlying mail session is not reentrant.
type Pipeline struct {
	queue    *taskQueue
	limiter  *RateLimiter
	quota    *DailyQuota
	prov     provider.Provider
	store    Store
	progress ProgressFunc

	maxRetries  int
	retryDelays []time.Duration
	popTimeout  time.Duration
	quotaDelay  time.Duration

	mu          sync.Mutex
	state       State
	outstanding map[string]int
	draining    bool

	// templates caches templates for the consumer goroutine only. Cleared
	// when a wave completes, so edits apply to waves started afterwards.
	templates map[string]domain.EmailTemplate

	// stop and done belong to one consumer goroutine; Start makes fresh ones.
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// NewPipeline builds a stopped pipeline. Call Start before enqueueing waves.
func NewPipeline(prov provider.Provider, store Store, limiter *RateLimiter, opts Options) *Pipeline {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = []time.Duration{30 * time.Second, 120 * time.Second, 300 * time.Second}
	}
	if opts.PopTimeout == 0 {
		opts.PopTimeout = 5 * time.Second
	}
	if opts.quotaRequeueDelay == 0 {
		opts.quotaRequeueDelay = 5 * time.Minute
	}

	return &Pipeline{
		queue:       newTaskQueue(),
		limiter:     limiter,
		quota:       opts.Quota,
		prov:        prov,
		store:       store,
		progress:    opts.Progress,
		maxRetries:  opts.MaxRetries,
		retryDelays: opts.RetryDelays,
		popTimeout:  opts.PopTimeout,
		quotaDelay:  opts.quotaRequeueDelay,
		state:       StateIdle,
		outstanding: make(map[string]int),
		templates:   make(map[string]domain.EmailTemplate),
	}
}

// Start launches the consumer goroutine. Calling Start on a running pipeline
// is a no-op; a stopped pipeline starts again with a fresh consumer.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.state = StateRunning
	p.draining = false
	p.mu.Unlock()

	go p.run(ctx, p.stop, p.done)
}

// State returns the current worker state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// QueueDepth returns the number of ready tasks plus pending retries.
func (p *Pipeline) QueueDepth() int {
	return p.queue.Len() + p.queue.PendingRetries()
}

// EnqueueWave registers a wave's tasks with the pipeline. The call returns
// once the tasks are queued; it never waits on the consumer.
func (p *Pipeline) EnqueueWave(waveID string, tasks []*Task) {
	if len(tasks) == 0 {
		return
	}
	p.mu.Lock()
	p.outstanding[waveID] += len(tasks)
	p.mu.Unlock()

	p.queue.Push(tasks...)
	logger.Info("wave enqueued", "wave_id", waveID, "tasks", len(tasks))
}

// Drain signals that no more waves will be enqueued. The worker moves to
// DRAINING and returns to IDLE once the queue and retry heap are empty.
func (p *Pipeline) Drain() {
	p.mu.Lock()
	p.draining = true
	if p.state == StateRunning {
		p.state = StateDraining
	}
	p.mu.Unlock()
}

// Stop halts the consumer: the in-flight task finishes, then pending retry
// timers are discarded and logged, never fired. Blocks until the goroutine
// exits or ctx is done.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	stop, done := p.stop, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}

	close(stop)
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, t := range p.queue.CancelPending() {
		logger.Warn("task discarded on shutdown",
			"wave_id", t.WaveID, "contact_id", t.ContactID, "retry_count", t.RetryCount)
	}
	p.templates = make(map[string]domain.EmailTemplate)
	p.mu.Lock()
	p.state = StateIdle
	p.outstanding = make(map[string]int)
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		task, ok := p.queue.Pop(p.popTimeout)
		if !ok {
			p.mu.Lock()
			if p.draining && p.queue.Empty() {
				p.state = StateIdle
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			continue
		}

		p.processTask(ctx, task)
	}
}

// processTask runs one attempt end to end. Errors and panics stay inside:
// one bad message must not stop the worker or abandon the queue.
func (p *Pipeline) processTask(ctx context.Context, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic processing task",
				"wave_id", task.WaveID, "contact_id", task.ContactID, "panic", r)
			p.recordFailure(ctx, task, "internal error during send")
		}
	}()

	if !p.checkQuota(ctx, task) {
		return
	}
	if !p.awaitRateSlot(ctx) {
		// Shutting down: put the task back so CancelPending accounts for it.
		p.queue.Push(task)
		return
	}

	subject, body, err := p.renderTask(ctx, task)
	if err != nil {
		logger.Error("template lookup failed",
			"wave_id", task.WaveID, "template_id", task.TemplateID, "error", err)
		p.recordFailure(ctx, task, "template unavailable: "+err.Error())
		return
	}

	msg, err := provider.NewMessage(task.Email, subject, body)
	if err != nil {
		// Validation failure is fatal for the task, never retried.
		p.recordFailure(ctx, task, err.Error())
		return
	}

	outcome, err := p.prov.Send(ctx, msg)
	if err != nil {
		// Provider itself unusable. Classify transient so the task gets
		// its backoff schedule rather than an immediate permanent failure.
		outcome = &provider.SendOutcome{Status: provider.StatusRetry, Error: err.Error()}
	}

	switch {
	case outcome.Success():
		p.recordSuccess(ctx, task, outcome, subject, body)

	case outcome.ShouldRetry() && task.RetryCount < p.maxRetries:
		p.recordRetry(ctx, task, outcome, subject, body)

	default:
		if outcome.ShouldRetry() {
			logger.Warn("retries exhausted",
				"wave_id", task.WaveID, "contact_id", task.ContactID, "retry_count", task.RetryCount)
		}
		p.recordFailureWithSnapshot(ctx, task, outcome.Error, subject, body)
	}
}

// checkQuota returns false when the task was deferred by the daily quota.
func (p *Pipeline) checkQuota(ctx context.Context, task *Task) bool {
	allowed, used, err := p.quota.Allow(ctx)
	if err != nil {
		// Quota guard failing open: Redis being down must not stall sends.
		logger.Warn("quota check failed, proceeding", "error", err)
		return true
	}
	if !allowed {
		logger.Warn("daily send quota reached, deferring task",
			"wave_id", task.WaveID, "used", used)
		p.queue.PushDelayed(task, p.quotaDelay)
		return false
	}
	return true
}

// awaitRateSlot blocks until the rate limiter admits a send or the pipeline
// stops. Bounded sleep, not busy-wait.
func (p *Pipeline) awaitRateSlot(ctx context.Context) bool {
	for !p.limiter.Acquire() {
		wait := p.limiter.TimeUntilNextSlot()
		if wait > time.Second {
			wait = time.Second
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
	return true
}

func (p *Pipeline) renderTask(ctx context.Context, task *Task) (subject, body string, err error) {
	tpl, ok := p.templates[task.TemplateID]
	if !ok {
		tpl, err = p.store.GetTemplate(ctx, task.TemplateID)
		if err != nil {
			return "", "", err
		}
		p.templates[task.TemplateID] = tpl
	}
	return Render(tpl.Subject, task.Vars), Render(tpl.Body, task.Vars), nil
}

func (p *Pipeline) recordSuccess(ctx context.Context, task *Task, outcome *provider.SendOutcome, subject, body string) {
	now := time.Now().UTC()
	p.record(ctx, task, Attempt{
		Log: domain.MailLog{
			ID:                uuid.New().String(),
			WaveID:            task.WaveID,
			ContactID:         task.ContactID,
			TemplateID:        task.TemplateID,
			Status:            domain.MailSent,
			RetryCount:        task.RetryCount,
			SubjectSent:       subject,
			BodySent:          body,
			ProviderMessageID: outcome.MessageID,
			SentAt:            now,
		},
		Transition: &StatusTransition{
			CampaignID: task.CampaignID,
			ContactID:  task.ContactID,
			Status:     domain.RecipientSent,
			SentAt:     &now,
			RetryCount: task.RetryCount,
		},
		SentDelta: 1,
	})
	p.finishTask(ctx, task, true)
}

// recordRetry logs the failed attempt and re-enqueues the task after its
// backoff delay. No recipient status transition happens yet.
func (p *Pipeline) recordRetry(ctx context.Context, task *Task, outcome *provider.SendOutcome, subject, body string) {
	p.record(ctx, task, Attempt{
		Log: domain.MailLog{
			ID:           uuid.New().String(),
			WaveID:       task.WaveID,
			ContactID:    task.ContactID,
			TemplateID:   task.TemplateID,
			Status:       domain.MailFailed,
			ErrorMessage: outcome.Error,
			RetryCount:   task.RetryCount,
			SubjectSent:  subject,
			BodySent:     body,
			SentAt:       time.Now().UTC(),
		},
	})

	task.RetryCount++
	delay := p.retryDelays[min(task.RetryCount-1, len(p.retryDelays)-1)]
	if outcome.RetryAfter > delay {
		delay = outcome.RetryAfter
	}
	logger.Info("send scheduled for retry",
		"wave_id", task.WaveID, "contact_id", task.ContactID,
		"retry_count", task.RetryCount, "delay", delay)
	p.queue.PushDelayed(task, delay)
}

func (p *Pipeline) recordFailure(ctx context.Context, task *Task, errMsg string) {
	p.recordFailureWithSnapshot(ctx, task, errMsg, "", "")
}

func (p *Pipeline) recordFailureWithSnapshot(ctx context.Context, task *Task, errMsg, subject, body string) {
	p.record(ctx, task, Attempt{
		Log: domain.MailLog{
			ID:           uuid.New().String(),
			WaveID:       task.WaveID,
			ContactID:    task.ContactID,
			TemplateID:   task.TemplateID,
			Status:       domain.MailFailed,
			ErrorMessage: errMsg,
			RetryCount:   task.RetryCount,
			SubjectSent:  subject,
			BodySent:     body,
			SentAt:       time.Now().UTC(),
		},
		Transition: &StatusTransition{
			CampaignID:   task.CampaignID,
			ContactID:    task.ContactID,
			ErrorMessage: errMsg,
			RetryCount:   task.RetryCount,
		},
		FailedDelta: 1,
	})
	p.finishTask(ctx, task, false)
}

func (p *Pipeline) record(ctx context.Context, task *Task, a Attempt) {
	if err := p.store.RecordAttempt(ctx, a); err != nil {
		logger.Error("failed to record send attempt",
			"wave_id", task.WaveID, "contact_id", task.ContactID, "error", err)
	}
}

// finishTask handles terminal outcomes: progress notification and wave
// completion when the last outstanding task resolves.
func (p *Pipeline) finishTask(ctx context.Context, task *Task, success bool) {
	p.notifyProgress(task.WaveID, success)

	p.mu.Lock()
	p.outstanding[task.WaveID]--
	done := p.outstanding[task.WaveID] <= 0
	if done {
		delete(p.outstanding, task.WaveID)
	}
	p.mu.Unlock()

	if done {
		// Drop cached templates so a wave started after an edit renders the
		// edited content. Within one wave rendering stays consistent.
		p.templates = make(map[string]domain.EmailTemplate)

		now := time.Now().UTC()
		if err := p.store.CompleteWave(ctx, task.WaveID, domain.WaveCompleted, now); err != nil {
			logger.Error("failed to complete wave", "wave_id", task.WaveID, "error", err)
			return
		}
		logger.Info("wave completed", "wave_id", task.WaveID)
	}
}

func (p *Pipeline) notifyProgress(waveID string, success bool) {
	if p.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress callback panicked", "wave_id", waveID, "panic", r)
		}
	}()
	p.progress(waveID, success)
}
