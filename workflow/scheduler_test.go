package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestRunPhases_ExecutesInDeclaredOrder(t *testing.T) {
	var order []string
	phases := []SyncPhase{
		{Name: "delete-sync", Run: func(ctx context.Context) error { order = append(order, "delete-sync"); return nil }},
		{Name: "create-sync", Run: func(ctx context.Context) error { order = append(order, "create-sync"); return nil }},
		{Name: "update-sync", Run: func(ctx context.Context) error { order = append(order, "update-sync"); return nil }},
		{Name: "derived-refresh", Run: func(ctx context.Context) error { order = append(order, "derived-refresh"); return nil }},
	}

	runPhases(context.Background(), quietLogger(), "test", phases)

	want := []string{"delete-sync", "create-sync", "update-sync", "derived-refresh"}
	if len(order) != len(want) {
		t.Fatalf("expected %d phases, ran %d (%v)", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("phase %d: expected %s, got %s (%v)", i, want[i], order[i], order)
		}
	}
}

func TestRunPhases_FailureDoesNotStarveLaterPhases(t *testing.T) {
	var ran []string
	phases := []SyncPhase{
		{Name: "delete-sync", Run: func(ctx context.Context) error { ran = append(ran, "delete-sync"); return errors.New("replica down") }},
		{Name: "create-sync", Run: func(ctx context.Context) error { ran = append(ran, "create-sync"); return nil }},
	}

	runPhases(context.Background(), quietLogger(), "test", phases)

	if len(ran) != 2 || ran[1] != "create-sync" {
		t.Fatalf("a failing phase must not block later phases, ran %v", ran)
	}
}

func TestRunPhases_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ran []string
	phases := []SyncPhase{
		{Name: "first", Run: func(ctx context.Context) error { ran = append(ran, "first"); cancel(); return nil }},
		{Name: "second", Run: func(ctx context.Context) error { ran = append(ran, "second"); return nil }},
	}

	runPhases(ctx, quietLogger(), "test", phases)

	if len(ran) != 1 {
		t.Fatalf("cancellation between phases must stop the tick, ran %v", ran)
	}
}

type countingWorker struct {
	runs   int
	cancel context.CancelFunc
	limit  int
}

func (w *countingWorker) Family() string { return "counting" }

func (w *countingWorker) RunOnce(ctx context.Context) {
	w.runs++
	if w.runs >= w.limit {
		w.cancel()
	}
}

func TestRunPeriodic_TicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	worker := &countingWorker{cancel: cancel, limit: 3}

	done := make(chan struct{})
	go func() {
		RunPeriodic(ctx, worker, time.Millisecond, quietLogger())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunPeriodic did not stop after context cancellation")
	}
	if worker.runs < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", worker.runs)
	}
}

func TestRunPeriodic_NoTickAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := &countingWorker{cancel: func() {}, limit: 1 << 30}
	done := make(chan struct{})
	go func() {
		RunPeriodic(ctx, worker, time.Millisecond, quietLogger())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic must return promptly on a dead context")
	}
	if worker.runs != 0 {
		t.Fatalf("a dead context must not produce ticks, got %d", worker.runs)
	}
}
