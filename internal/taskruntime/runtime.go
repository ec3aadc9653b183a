// Package taskruntime implements C7: the asynchronous job runtime backing
// every phase and item-batch execution, with per-queue rate limiting,
// coalesced progress, cooperative cancellation, heartbeats, and
// RetryManager-driven re-enqueue. Ground: campaign_worker_service.go's
// worker-pool-per-resource-class shape (StartWorkers/workerLoop), adapted
// from a single poll-the-database loop to N fixed in-process channel-fed
// pools, one per QueueClass, each token-bucketed with golang.org/x/time/rate
// instead of the teacher's plain poll-interval ticker.
package taskruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// JobFunc is the unit of work a job submits. report delivers progress
// updates; the runtime coalesces them before forwarding to a Publisher.
// Implementations must check ctx.Done() between items/sub-operations for
// cooperative cancellation to take effect.
type JobFunc func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error)

// JobSpec describes one unit of work to submit.
type JobSpec struct {
	Type         models.TaskTypeEnum
	Phase        models.PhaseID
	Queue        models.QueueClass
	ParentTaskID *uuid.UUID
	Run          JobFunc
}

// RetryDecider is consulted after a job's Run returns an error, to decide
// whether the runtime should re-enqueue the same task_id and after how
// long. A nil decider disables retry entirely (every failure is final).
type RetryDecider interface {
	ShouldRetry(err error) (retry bool, delay time.Duration)
}

// Publisher receives task lifecycle and progress events. A nil Publisher
// is valid; events are simply dropped.
type Publisher interface {
	Publish(evt Event)
}

// Event is the generic shape taskruntime emits; EventBus (C9) translates
// these into its own typed, ordered event stream.
type Event struct {
	TaskID   uuid.UUID
	Type     string // "status" or "progress"
	Phase    models.PhaseID
	Status   models.TaskStatusEnum
	Progress models.Progress
	Err      string
}

// QueueConfig is one queue's worker pool size and token-bucket rate.
type QueueConfig struct {
	Workers   int
	PerMinute int
	Burst     int
}

// Config sizes the runtime's queues and governs heartbeat and progress-
// coalescing behavior. TaskRetentionPeriod is carried for callers of
// Cleanup; the runtime never purges finished tasks on its own.
type Config struct {
	Queues              map[models.QueueClass]QueueConfig
	ProgressCoalesce    time.Duration
	HeartbeatInterval   time.Duration
	DeadWorkerFactor    int
	TaskRetentionPeriod time.Duration
	QueueBacklog        int
}

// DefaultConfig returns sane defaults matching §4.7's stated figures.
func DefaultConfig() Config {
	return Config{
		Queues: map[models.QueueClass]QueueConfig{
			models.QueueContentFetching: {Workers: 8, PerMinute: 30, Burst: 10},
			models.QueueAIProcessing:    {Workers: 4, PerMinute: 10, Burst: 3},
			models.QueueSynthesis:       {Workers: 2, PerMinute: 5, Burst: 2},
			models.QueueMonitoring:      {Workers: 1, PerMinute: 60, Burst: 10},
			models.QueueDefault:         {Workers: 4, PerMinute: 60, Burst: 20},
			models.QueuePriority:        {Workers: 2, PerMinute: 60, Burst: 20},
		},
		ProgressCoalesce:    100 * time.Millisecond,
		HeartbeatInterval:   30 * time.Second,
		DeadWorkerFactor:    3,
		TaskRetentionPeriod: 7 * 24 * time.Hour,
		QueueBacklog:        1024,
	}
}

type enqueuedJob struct {
	taskID  uuid.UUID
	spec    JobSpec
	attempt int
}

type taskEntry struct {
	state         models.TaskState
	cancel        context.CancelFunc
	lastHeartbeat time.Time
}

// Runtime is C7's concrete implementation.
type Runtime struct {
	cfg       Config
	retry     RetryDecider
	publisher Publisher
	logger    *logging.Logger
	now       func() time.Time

	mu    sync.RWMutex
	tasks map[uuid.UUID]*taskEntry

	channels map[models.QueueClass]chan enqueuedJob
	limiters map[models.QueueClass]*rate.Limiter

	coalescer *coalescer

	runCtx    context.Context
	runCancel context.CancelFunc
	group     *errgroup.Group
	started   bool
}

// New constructs a Runtime. Call Start to launch its worker pools.
func New(cfg Config, retry RetryDecider, publisher Publisher, logger *logging.Logger) *Runtime {
	r := &Runtime{
		cfg:       cfg,
		retry:     retry,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		tasks:     make(map[uuid.UUID]*taskEntry),
		channels:  make(map[models.QueueClass]chan enqueuedJob),
		limiters:  make(map[models.QueueClass]*rate.Limiter),
		coalescer: newCoalescer(cfg.ProgressCoalesce),
	}
	for q, qc := range cfg.Queues {
		r.channels[q] = make(chan enqueuedJob, cfg.QueueBacklog)
		perSecond := float64(qc.PerMinute) / 60.0
		r.limiters[q] = rate.NewLimiter(rate.Limit(perSecond), qc.Burst)
	}
	return r
}

// Start launches the per-queue worker pools. It must be called once
// before Submit; ctx governs the runtime's own lifetime (cancelling it
// stops every worker).
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.runCtx, r.runCancel = context.WithCancel(ctx)
	r.group = &errgroup.Group{}
	group := r.group
	r.mu.Unlock()

	for q, qc := range r.cfg.Queues {
		queue := q
		for i := 0; i < qc.Workers; i++ {
			group.Go(func() error {
				r.workerLoop(queue)
				return nil
			})
		}
	}
	group.Go(func() error {
		r.heartbeatMonitor()
		return nil
	})
}

// Stop cancels every in-flight job and waits for worker goroutines to
// return.
func (r *Runtime) Stop() {
	r.mu.Lock()
	cancel := r.runCancel
	group := r.group
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}
}

// Submit enqueues spec onto its queue, returning the new task's id
// immediately; the job runs asynchronously.
func (r *Runtime) Submit(spec JobSpec) (uuid.UUID, error) {
	if spec.Run == nil {
		return uuid.Nil, fmt.Errorf("taskruntime: job spec has a nil Run func")
	}
	if _, ok := r.channels[spec.Queue]; !ok {
		return uuid.Nil, fmt.Errorf("taskruntime: unknown queue %q", spec.Queue)
	}

	taskID := uuid.New()
	now := r.now()
	entry := &taskEntry{
		state: models.TaskState{
			TaskID:       taskID,
			Type:         spec.Type,
			Status:       models.TaskStatusPending,
			Phase:        spec.Phase,
			Queue:        spec.Queue,
			CreatedAt:    now,
			ParentTaskID: spec.ParentTaskID,
		},
		lastHeartbeat: now,
	}

	r.mu.Lock()
	r.tasks[taskID] = entry
	r.mu.Unlock()

	r.publish(Event{TaskID: taskID, Type: "status", Phase: spec.Phase, Status: models.TaskStatusPending})

	r.channels[spec.Queue] <- enqueuedJob{taskID: taskID, spec: spec, attempt: 0}
	return taskID, nil
}

// Cancel requests cooperative cancellation of taskID's job. It returns
// false if the task is unknown or already terminal.
func (r *Runtime) Cancel(taskID uuid.UUID) bool {
	r.mu.Lock()
	entry, ok := r.tasks[taskID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.mu.RLock()
	terminal := entry.state.Status.IsTerminal()
	cancel := entry.cancel
	r.mu.RUnlock()
	if terminal {
		return false
	}
	if cancel != nil {
		cancel()
	}
	return true
}

// Status returns a snapshot of taskID's current state, or false if
// unknown.
func (r *Runtime) Status(taskID uuid.UUID) (models.TaskState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tasks[taskID]
	if !ok {
		return models.TaskState{}, false
	}
	return entry.state, true
}

// ListFilter narrows List's results; zero-valued fields are ignored.
type ListFilter struct {
	Queue models.QueueClass
	Phase models.PhaseID
	Type  models.TaskTypeEnum
}

// List returns tasks matching filter, restricted to active (non-terminal)
// or history (terminal) tasks per active.
func (r *Runtime) List(active bool, filter ListFilter) []models.TaskState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.TaskState
	for _, entry := range r.tasks {
		if entry.state.Status.IsTerminal() == active {
			continue
		}
		if filter.Queue != "" && entry.state.Queue != filter.Queue {
			continue
		}
		if filter.Phase != "" && entry.state.Phase != filter.Phase {
			continue
		}
		if filter.Type != "" && entry.state.Type != filter.Type {
			continue
		}
		out = append(out, entry.state)
	}
	return out
}

// Statistics is the runtime-wide aggregate returned by Statistics().
type Statistics struct {
	TotalTasks   int
	ByStatus     map[models.TaskStatusEnum]int
	ByQueue      map[models.QueueClass]int
}

// Statistics aggregates counts across every tracked task.
func (r *Runtime) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Statistics{ByStatus: make(map[models.TaskStatusEnum]int), ByQueue: make(map[models.QueueClass]int)}
	for _, entry := range r.tasks {
		stats.TotalTasks++
		stats.ByStatus[entry.state.Status]++
		stats.ByQueue[entry.state.Queue]++
	}
	return stats
}

// Cleanup purges terminal tasks whose CompletedAt is older than
// olderThan, returning how many were removed.
func (r *Runtime) Cleanup(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, entry := range r.tasks {
		if !entry.state.Status.IsTerminal() {
			continue
		}
		if entry.state.CompletedAt != nil && entry.state.CompletedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

func (r *Runtime) publish(evt Event) {
	if r.publisher != nil {
		r.publisher.Publish(evt)
	}
}

func (r *Runtime) setStatus(taskID uuid.UUID, status models.TaskStatusEnum, errMsg string, result json.RawMessage) {
	now := r.now()
	r.mu.Lock()
	entry, ok := r.tasks[taskID]
	if ok {
		entry.state.Status = status
		entry.state.Error = errMsg
		if result != nil {
			entry.state.Result = result
		}
		if status == models.TaskStatusRunning && entry.state.StartedAt == nil {
			entry.state.StartedAt = &now
		}
		if status.IsTerminal() {
			entry.state.CompletedAt = &now
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	r.publish(Event{TaskID: taskID, Type: "status", Phase: entry.state.Phase, Status: status, Err: errMsg})
}

func (r *Runtime) touchHeartbeat(taskID uuid.UUID) {
	now := r.now()
	r.mu.Lock()
	if entry, ok := r.tasks[taskID]; ok {
		entry.lastHeartbeat = now
	}
	r.mu.Unlock()
}

func (r *Runtime) classify(err error) (retry bool, delay time.Duration) {
	if agenterrors.As(err, agenterrors.KindCancelled) {
		return false, 0
	}
	if r.retry == nil {
		return false, 0
	}
	return r.retry.ShouldRetry(err)
}
