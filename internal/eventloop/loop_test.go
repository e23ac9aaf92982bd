package eventloop

import (
	"testing"
	"time"
)

func TestTickFiresDueTimerInOrder(t *testing.T) {
	l := New()
	var order []int
	l.AddTimer(0, 0, func() { order = append(order, 1) })
	l.AddTimer(0, 0, func() { order = append(order, 2) })
	time.Sleep(2 * time.Millisecond)
	l.Tick()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected creation order [1 2], got %v", order)
	}
}

func TestCancelTimerPreventsFiring(t *testing.T) {
	l := New()
	fired := false
	id := l.AddTimer(0, 0, func() { fired = true })
	if !l.CancelTimer(id) {
		t.Fatal("expected cancel to succeed")
	}
	time.Sleep(2 * time.Millisecond)
	l.Tick()
	if fired {
		t.Fatal("cancelled timer should not fire")
	}
}

func TestIntervalTimerRearms(t *testing.T) {
	l := New()
	count := 0
	id := l.AddTimer(0, time.Millisecond, func() {
		count++
	})
	defer l.CancelTimer(id)
	for i := 0; i < 3; i++ {
		time.Sleep(2 * time.Millisecond)
		l.Tick()
	}
	if count < 2 {
		t.Fatalf("expected interval to fire multiple times, got %d", count)
	}
}

func TestHasPendingWorkTracksTaskCounter(t *testing.T) {
	l := New()
	if l.HasPendingWork() {
		t.Fatal("fresh loop should have no pending work")
	}
	l.RegisterTask()
	if !l.HasPendingWork() {
		t.Fatal("expected pending work after RegisterTask")
	}
	l.PostCompletion(CompletedTask{TaskID: 1})
	completions := l.DrainCompletions()
	if len(completions) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(completions))
	}
	if l.HasPendingWork() {
		t.Fatal("expected no pending work after drain")
	}
}
