package taskmanager

import (
	"errors"
	"testing"
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/domain"
)

func waitForState(t *testing.T, m *Manager, id string, want domain.TaskState) domain.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if task.State == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach state %s in time", id, want)
	return domain.Task{}
}

func TestManager_SubmitAndComplete(t *testing.T) {
	m := New(4, nil)
	defer m.Shutdown()

	id, err := m.Submit(domain.TaskKindAnalysis, func(h *Handle) (interface{}, error) {
		h.SetTotal(2)
		h.Progress(1, "a.mp3")
		h.Progress(2, "b.mp3")
		return domain.AnalysisSummary{TotalFiles: 2, AnalysedFiles: 2}, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	task := waitForState(t, m, id, domain.TaskStateCompleted)
	if task.ProcessedFiles != 2 {
		t.Errorf("expected 2 processed files, got %d", task.ProcessedFiles)
	}
	if task.Progress != 100.0 {
		t.Errorf("expected progress 100.0, got %f", task.Progress)
	}

	result, ready, err := m.Result(id)
	if err != nil || !ready {
		t.Fatalf("expected a ready result, got ready=%v err=%v", ready, err)
	}
	if _, ok := result.(domain.AnalysisSummary); !ok {
		t.Errorf("expected an AnalysisSummary result, got %T", result)
	}
}

func TestManager_SubmitFails(t *testing.T) {
	m := New(4, nil)
	defer m.Shutdown()

	id, err := m.Submit(domain.TaskKindAnalysis, func(h *Handle) (interface{}, error) {
		return nil, errors.New("boom")
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	task := waitForState(t, m, id, domain.TaskStateFailed)
	if task.FailureReason == "" {
		t.Error("expected a failure reason")
	}

	_, ready, err := m.Result(id)
	if !ready || err == nil {
		t.Errorf("expected a ready, errored result, got ready=%v err=%v", ready, err)
	}
}

func TestManager_CancelIsIdempotentAndObserved(t *testing.T) {
	m := New(4, nil)
	defer m.Shutdown()

	started := make(chan struct{})
	id, err := m.Submit(domain.TaskKindAnalysis, func(h *Handle) (interface{}, error) {
		close(started)
		<-h.Context().Done()
		return nil, h.Context().Err()
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	if err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := m.Cancel(id); err != nil {
		t.Fatalf("second Cancel should be a no-op, got: %v", err)
	}

	waitForState(t, m, id, domain.TaskStateCancelled)
}

func TestManager_StatusUnknownTaskFails(t *testing.T) {
	m := New(4, nil)
	defer m.Shutdown()

	if _, err := m.Status("nonexistent"); err == nil {
		t.Fatal("expected an error for an unknown task")
	}
}

func TestManager_SubmitBusyAtCeiling(t *testing.T) {
	m := New(1, nil)
	defer m.Shutdown()

	block := make(chan struct{})
	_, err := m.Submit(domain.TaskKindAnalysis, func(h *Handle) (interface{}, error) {
		<-block
		return nil, nil
	})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, err = m.Submit(domain.TaskKindAnalysis, func(h *Handle) (interface{}, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected Busy when at the ceiling")
	}
	e, ok := apierr.As(err)
	if !ok || e.Code != apierr.CodeBusy {
		t.Errorf("expected a Busy apierr, got %v", err)
	}

	close(block)
}

func TestManager_PendingTaskResultIsNotReady(t *testing.T) {
	m := New(4, nil)
	defer m.Shutdown()

	block := make(chan struct{})
	id, err := m.Submit(domain.TaskKindAnalysis, func(h *Handle) (interface{}, error) {
		<-block
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, ready, err := m.Result(id)
	if ready || err != nil {
		t.Errorf("expected a pending result, got ready=%v err=%v", ready, err)
	}

	close(block)
	waitForState(t, m, id, domain.TaskStateCompleted)
}
