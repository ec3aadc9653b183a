package taskruntime

import (
	"context"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

// workerLoop drains queue q until the runtime's context is cancelled,
// rate-limiting each dispatch via that queue's token bucket.
func (r *Runtime) workerLoop(q models.QueueClass) {
	ch := r.channels[q]
	limiter := r.limiters[q]

	for {
		select {
		case <-r.runCtx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			if err := limiter.Wait(r.runCtx); err != nil {
				// Runtime shutting down; the job stays PENDING and is
				// simply dropped from this worker's perspective.
				return
			}
			r.execute(job)
		}
	}
}

func (r *Runtime) execute(job enqueuedJob) {
	jobCtx, cancel := context.WithCancel(r.runCtx)
	defer cancel()

	r.mu.Lock()
	entry, ok := r.tasks[job.taskID]
	if ok {
		entry.cancel = cancel
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.setStatus(job.taskID, models.TaskStatusRunning, "", nil)
	r.touchHeartbeat(job.taskID)

	report := func(p models.Progress) {
		r.touchHeartbeat(job.taskID)
		if r.coalescer.allow(job.taskID, r.now()) {
			r.publish(Event{TaskID: job.taskID, Type: "progress", Phase: job.spec.Phase, Progress: p})
		}
	}

	result, err := job.spec.Run(jobCtx, report)
	r.coalescer.forget(job.taskID)

	switch {
	case err == nil:
		r.setStatus(job.taskID, models.TaskStatusSuccess, "", result)
	case jobCtx.Err() != nil:
		if st, ok := r.Status(job.taskID); ok && st.Status.IsTerminal() {
			// reapDeadWorkers already failed this task with worker_lost.
			return
		}
		r.setStatus(job.taskID, models.TaskStatusCancelled, agenterrors.Cancelled("job cancelled").Error(), nil)
	default:
		r.handleFailure(job, err)
	}
}

func (r *Runtime) handleFailure(job enqueuedJob, err error) {
	retry, delay := r.classify(err)
	if !retry {
		r.setStatus(job.taskID, models.TaskStatusFailure, err.Error(), nil)
		return
	}

	r.setStatus(job.taskID, models.TaskStatusRetrying, err.Error(), nil)
	next := enqueuedJob{taskID: job.taskID, spec: job.spec, attempt: job.attempt + 1}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-r.runCtx.Done():
			return
		case <-timer.C:
		}
		select {
		case r.channels[job.spec.Queue] <- next:
		case <-r.runCtx.Done():
		}
	}()
}

func (r *Runtime) heartbeatMonitor() {
	interval := r.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	factor := r.cfg.DeadWorkerFactor
	if factor <= 0 {
		factor = 3
	}
	deadAfter := time.Duration(factor) * interval

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.runCtx.Done():
			return
		case <-ticker.C:
			r.reapDeadWorkers(deadAfter)
		}
	}
}

func (r *Runtime) reapDeadWorkers(deadAfter time.Duration) {
	now := r.now()
	var lost []uuid.UUID
	r.mu.RLock()
	for id, entry := range r.tasks {
		if entry.state.Status != models.TaskStatusRunning {
			continue
		}
		if now.Sub(entry.lastHeartbeat) >= deadAfter {
			lost = append(lost, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range lost {
		r.mu.RLock()
		entry := r.tasks[id]
		cancel := entry.cancel
		r.mu.RUnlock()
		if cancel != nil {
			cancel()
		}
		r.setStatus(id, models.TaskStatusFailure, agenterrors.WorkerLost("worker heartbeat expired").Error(), nil)
	}
}
