package watchdog

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeTerm struct {
	interrupted atomic.Bool
}

func (f *fakeTerm) Interrupt(reason string) { f.interrupted.Store(true) }

func TestStopBeforeTimeoutPreventsInterrupt(t *testing.T) {
	term := &fakeTerm{}
	w := Start(term, 50*time.Millisecond)
	w.Stop()
	if term.interrupted.Load() {
		t.Fatal("expected no interrupt when stopped before timeout")
	}
}

func TestTimeoutFiresInterrupt(t *testing.T) {
	term := &fakeTerm{}
	w := Start(term, 10*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	w.Stop()
	if !term.interrupted.Load() {
		t.Fatal("expected interrupt after timeout elapsed")
	}
}
