package taskruntime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// Make every queue fast and single-worker for deterministic tests.
	for q := range cfg.Queues {
		cfg.Queues[q] = QueueConfig{Workers: 1, PerMinute: 6000, Burst: 100}
	}
	cfg.ProgressCoalesce = time.Millisecond
	cfg.HeartbeatInterval = 20 * time.Millisecond
	cfg.DeadWorkerFactor = 2
	return cfg
}

type recordingPublisher struct {
	mu     chan struct{}
	events []Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{mu: make(chan struct{}, 1)}
}

func (p *recordingPublisher) Publish(evt Event) { p.events = append(p.events, evt) }

func waitForStatus(t *testing.T, r *Runtime, taskID uuid.UUID, want models.TaskStatusEnum, timeout time.Duration) models.TaskState {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, ok := r.Status(taskID)
		if ok && st.Status == want {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %q", want)
	return models.TaskState{}
}

func TestSubmitRunsJobToSuccess(t *testing.T) {
	r := New(testConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	taskID, err := r.Submit(JobSpec{
		Queue: models.QueueDefault,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			report(models.Progress{Current: 1, Total: 1})
			return []byte(`"ok"`), nil
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	st := waitForStatus(t, r, taskID, models.TaskStatusSuccess, time.Second)
	if string(st.Result) != `"ok"` {
		t.Fatalf("expected result ok, got %s", st.Result)
	}
}

func TestCancelStopsCooperativeJob(t *testing.T) {
	r := New(testConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	started := make(chan struct{})
	taskID, err := r.Submit(JobSpec{
		Queue: models.QueueDefault,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			close(started)
			for i := 0; i < 1000; i++ {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				default:
				}
				time.Sleep(time.Millisecond)
			}
			return []byte("null"), nil
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	<-started
	if !r.Cancel(taskID) {
		t.Fatalf("expected cancel to succeed on a running task")
	}
	waitForStatus(t, r, taskID, models.TaskStatusCancelled, time.Second)
}

type alwaysRetry struct{ delay time.Duration }

func (a alwaysRetry) ShouldRetry(err error) (bool, time.Duration) { return true, a.delay }

func TestFailureRetriesThenSucceeds(t *testing.T) {
	r := New(testConfig(), alwaysRetry{delay: time.Millisecond}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	var attempts int
	taskID, err := r.Submit(JobSpec{
		Queue: models.QueueDefault,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			attempts++
			if attempts < 2 {
				return nil, errors.New("temporary blip")
			}
			return []byte("null"), nil
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitForStatus(t, r, taskID, models.TaskStatusSuccess, time.Second)
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

type neverRetry struct{}

func (neverRetry) ShouldRetry(err error) (bool, time.Duration) { return false, 0 }

func TestFailureWithoutRetryGoesToFailure(t *testing.T) {
	r := New(testConfig(), neverRetry{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	taskID, err := r.Submit(JobSpec{
		Queue: models.QueueDefault,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			return nil, errors.New("boom")
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	st := waitForStatus(t, r, taskID, models.TaskStatusFailure, time.Second)
	if st.Error == "" {
		t.Fatalf("expected failure error recorded")
	}
}

func TestHeartbeatExpiryMarksWorkerLost(t *testing.T) {
	r := New(testConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	taskID, err := r.Submit(JobSpec{
		Queue: models.QueueDefault,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	st := waitForStatus(t, r, taskID, models.TaskStatusFailure, time.Second)
	if st.Error == "" {
		t.Fatalf("expected worker_lost error recorded")
	}
}

func TestCleanupPurgesOldTerminalTasks(t *testing.T) {
	r := New(testConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	taskID, _ := r.Submit(JobSpec{
		Queue: models.QueueDefault,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			return []byte("null"), nil
		},
	})
	waitForStatus(t, r, taskID, models.TaskStatusSuccess, time.Second)

	removed := r.Cleanup(-time.Hour) // cutoff in the future relative to CompletedAt
	if removed != 1 {
		t.Fatalf("expected 1 task purged, got %d", removed)
	}
	if _, ok := r.Status(taskID); ok {
		t.Fatalf("expected task removed from status lookup")
	}
}
