// Package configwatch implements the Config Watcher (SPEC_FULL.md §4.6): an
// event-loop timer that polls the config file's mtime and, on change,
// debounces briefly before invoking the registry's reconcile.
package configwatch

import (
	"os"
	"time"

	"github.com/gleicon/nano/internal/config"
	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/pkg/logger"
)

// pollInterval and debounce match spec.md §4.2's fixed 10s poll / 500ms
// debounce for the config watcher timer.
const (
	pollInterval = 10 * time.Second
	debounce     = 500 * time.Millisecond
)

// Reconciler is the one capability the watcher needs from the tenant
// registry: apply a freshly parsed set of app records.
type Reconciler interface {
	Reconcile(apps []config.App) tenant.ReconcileResult
}

// Watcher wraps an eventloop.Loop timer, re-arming itself on every poll.
type Watcher struct {
	path        string
	loop        *eventloop.Loop
	reconciler  Reconciler
	log         *logger.Logger
	lastMtime   time.Time
	lastChange  time.Time
	pendingHost bool
	timerID     uint64
}

// Start stats path once to seed lastMtime, then arms the poll timer on
// loop. Returns the Watcher so the caller can Stop it on shutdown. log may
// be nil, in which case a default component logger is used — mirroring
// httpfront.New's nil-logger convention.
func Start(loop *eventloop.Loop, path string, reconciler Reconciler, log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.NewDefault("configwatch")
	}
	w := &Watcher{path: path, loop: loop, reconciler: reconciler, log: log}
	if info, err := os.Stat(path); err == nil {
		w.lastMtime = info.ModTime()
	}
	w.arm()
	return w
}

func (w *Watcher) arm() {
	w.timerID = w.loop.AddTimer(pollInterval, pollInterval, w.poll)
}

// Stop cancels the watcher's poll timer.
func (w *Watcher) Stop() {
	w.loop.CancelTimer(w.timerID)
}

// poll runs on every tick of the poll timer. A stat failure re-arms
// silently (the file may be mid atomic-replace, expected per spec.md §4.6);
// a parse failure re-arms too but is logged, since that one is worth an
// operator's attention.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if info.ModTime().Equal(w.lastMtime) {
		return
	}

	now := time.Now()
	if now.Sub(w.lastChange) < debounce {
		return
	}
	w.lastMtime = info.ModTime()
	w.lastChange = now

	doc, err := config.Load(w.path)
	if err != nil {
		// config.Load has no per-app granularity on a document-level parse
		// error, so the registry is left unchanged (spec.md §4.6/§7) — but
		// the failure itself must still be visible to an operator.
		w.log.Errorf("config watcher: failed to parse %s: %v", w.path, err)
		return
	}
	w.reconciler.Reconcile(doc.Apps)
}
