// Package taskmanager owns the map of background tasks and mediates
// between API callers and long-running analysis/playlist-generation work,
// per spec.md §4.1. One goroutine owns each task's state machine; callers
// only ever see atomic snapshots. The panic-recovery-per-job and
// ticker-driven sweep are grounded on the teacher's internal/worker.go
// (job panic recovery) and internal/downloader/worker.go (periodic cleanup
// loop), re-targeted at the spec's task lifecycle instead of download jobs.
package taskmanager

import (
	"context"
	"sync"
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/constants"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/logger"
	"github.com/cesargomez89/navidrums/internal/taskid"
)

// RunFunc is the work a submitted task performs. It must observe
// h.Context().Done() cooperatively and report progress through h.
type RunFunc func(h *Handle) (result interface{}, err error)

// Handle is the single-writer interface a RunFunc uses to report progress;
// the owning goroutine is the only caller, so no locking is needed on this
// side, only on the taskState it writes through.
type Handle struct {
	ctx   context.Context
	state *taskState
}

func (h *Handle) Context() context.Context { return h.ctx }

// TaskID returns the owning task's id, used e.g. to seed reproducible
// randomness (spec.md §4.6's surprise perturbation).
func (h *Handle) TaskID() string {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return h.state.task.ID
}

// SetTotal records the total unit count once known (e.g. after a scan).
func (h *Handle) SetTotal(total int) {
	h.state.mu.Lock()
	h.state.task.TotalFiles = total
	h.state.mu.Unlock()
}

// Progress advances processed-file count and records the file in flight.
// Task.Progress is reported on a [0.0, 100.0] scale.
func (h *Handle) Progress(processed int, currentFile string) {
	h.state.mu.Lock()
	h.state.task.ProcessedFiles = processed
	h.state.task.CurrentFile = currentFile
	if h.state.task.TotalFiles > 0 {
		h.state.task.Progress = 100 * float64(processed) / float64(h.state.task.TotalFiles)
	}
	h.state.task.UpdatedAt = time.Now()
	h.state.mu.Unlock()
}

// AddError appends a bounded task-level error entry (spec.md §7: the error
// list is capped so a pathological library cannot grow a task unbounded).
func (h *Handle) AddError(path, code, message string) {
	h.state.mu.Lock()
	h.state.task.ErrorCount++
	if len(h.state.task.Errors) < constants.MaxTaskErrors {
		h.state.task.Errors = append(h.state.task.Errors, domain.TaskError{Path: path, Code: code, Message: message})
	}
	h.state.task.UpdatedAt = time.Now()
	h.state.mu.Unlock()
}

type taskState struct {
	mu     sync.Mutex
	task   domain.Task
	cancel context.CancelFunc
}

func (s *taskState) snapshot() domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.task
	t.Errors = append([]domain.TaskError(nil), s.task.Errors...)
	return t
}

// Manager implements spec.md §4.1's TaskManager contract.
type Manager struct {
	tasks   sync.Map // string -> *taskState
	ceiling int
	log     *logger.Logger

	submitMu sync.Mutex // makes Submit's ceiling check and insert one step

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Manager and starts its retention sweeper.
func New(ceiling int, log *logger.Logger) *Manager {
	if ceiling <= 0 {
		ceiling = constants.DefaultGlobalTaskCeiling
	}
	if log == nil {
		log = logger.Default()
	}
	m := &Manager{
		ceiling: ceiling,
		log:     log.WithComponent("taskmanager"),
		stop:    make(chan struct{}),
	}
	m.wg.Add(1)
	go m.sweepLoop()
	return m
}

// Shutdown stops the sweeper and cancels every active task, then waits for
// the sweeper goroutine to exit.
func (m *Manager) Shutdown() {
	close(m.stop)
	m.tasks.Range(func(_, v interface{}) bool {
		st := v.(*taskState)
		st.mu.Lock()
		cancel := st.cancel
		st.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return true
	})
	m.wg.Wait()
}

func (m *Manager) activeCount() int {
	n := 0
	m.tasks.Range(func(_, v interface{}) bool {
		st := v.(*taskState)
		st.mu.Lock()
		terminal := isTerminal(st.task.State)
		st.mu.Unlock()
		if !terminal {
			n++
		}
		return true
	})
	return n
}

func isTerminal(s domain.TaskState) bool {
	return s == domain.TaskStateCompleted || s == domain.TaskStateFailed || s == domain.TaskStateCancelled
}

// Submit creates and starts a new task, failing with Busy when the global
// concurrent-task ceiling is reached. Never blocks.
func (m *Manager) Submit(kind domain.TaskKind, run RunFunc) (string, error) {
	m.submitMu.Lock()
	defer m.submitMu.Unlock()
	if m.activeCount() >= m.ceiling {
		return "", apierr.Busy("the global concurrent-task ceiling has been reached")
	}

	id := taskid.New()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	st := &taskState{
		task: domain.Task{
			ID:        id,
			Kind:      kind,
			State:     domain.TaskStatePending,
			UpdatedAt: now,
		},
		cancel: cancel,
	}
	m.tasks.Store(id, st)

	m.wg.Add(1)
	go m.runTask(ctx, st, run)

	return id, nil
}

func (m *Manager) runTask(ctx context.Context, st *taskState, run RunFunc) {
	defer m.wg.Done()

	select {
	case <-ctx.Done():
		st.mu.Lock()
		st.task.State = domain.TaskStateCancelled
		st.task.UpdatedAt = time.Now()
		endedAt := time.Now()
		st.task.EndedAt = &endedAt
		st.mu.Unlock()
		return
	default:
	}

	startedAt := time.Now()
	st.mu.Lock()
	st.task.State = domain.TaskStateRunning
	st.task.StartedAt = &startedAt
	st.task.UpdatedAt = startedAt
	st.mu.Unlock()

	result, err := m.runWithRecover(ctx, st, run)

	endedAt := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.task.UpdatedAt = endedAt
	st.task.EndedAt = &endedAt

	switch {
	case err != nil && ctx.Err() != nil:
		st.task.State = domain.TaskStateCancelled
	case err != nil:
		st.task.State = domain.TaskStateFailed
		st.task.FailureReason = err.Error()
	default:
		st.task.State = domain.TaskStateCompleted
		st.task.Result = result
		st.task.Progress = 100.0
	}
}

// runWithRecover converts a panic in the task body into an internal-class
// failure, mirroring the teacher's per-job recover() in worker.go, and does
// not let it take down the manager or any other task.
func (m *Manager) runWithRecover(ctx context.Context, st *taskState, run RunFunc) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in task", "task_id", st.task.ID, "recovered", r)
			err = apierr.Internal("task panicked", nil)
		}
	}()
	return run(&Handle{ctx: ctx, state: st})
}

// Status returns a point-in-time snapshot of the task, NotFound if unknown.
func (m *Manager) Status(id string) (domain.Task, error) {
	v, ok := m.tasks.Load(id)
	if !ok {
		return domain.Task{}, apierr.NotFound("task %s not found", id)
	}
	return v.(*taskState).snapshot(), nil
}

// Cancel signals cooperative cancellation. Idempotent: cancelling a task
// already in a terminal state is a no-op, not an error.
func (m *Manager) Cancel(id string) error {
	v, ok := m.tasks.Load(id)
	if !ok {
		return apierr.NotFound("task %s not found", id)
	}
	st := v.(*taskState)
	st.mu.Lock()
	cancel := st.cancel
	st.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Result returns the task's result if it completed, an error classification
// if it failed, or (_, false, nil) if it is still pending/running.
func (m *Manager) Result(id string) (result interface{}, ready bool, err error) {
	task, statusErr := m.Status(id)
	if statusErr != nil {
		return nil, false, statusErr
	}
	switch task.State {
	case domain.TaskStateCompleted:
		return task.Result, true, nil
	case domain.TaskStateFailed:
		return nil, true, apierr.Internal(task.FailureReason, nil)
	case domain.TaskStateCancelled:
		return nil, true, apierr.Conflict("task %s was cancelled", id)
	default:
		return nil, false, nil
	}
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(constants.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	now := time.Now()
	m.tasks.Range(func(k, v interface{}) bool {
		st := v.(*taskState)
		st.mu.Lock()
		state := st.task.State
		endedAt := st.task.EndedAt
		st.mu.Unlock()

		if !isTerminal(state) || endedAt == nil {
			return true
		}

		retention := constants.FailedTaskRetention
		if state == domain.TaskStateCompleted {
			retention = constants.CompletedTaskRetention
		}
		if now.Sub(*endedAt) > retention {
			m.tasks.Delete(k)
		}
		return true
	})
}
