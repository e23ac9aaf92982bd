package configwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gleicon/nano/internal/config"
	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/tenant"
)

type fakeReconciler struct {
	calls []int
}

func (f *fakeReconciler) Reconcile(apps []config.App) tenant.ReconcileResult {
	f.calls = append(f.calls, len(apps))
	return tenant.ReconcileResult{}
}

func writeConfig(t *testing.T, path string, apps int) {
	t.Helper()
	var sb []byte
	sb = append(sb, []byte(`{"apps":[`)...)
	for i := 0; i < apps; i++ {
		if i > 0 {
			sb = append(sb, ',')
		}
		sb = append(sb, []byte(`{"name":"a`+itoaTest(i)+`","path":"."}`)...)
	}
	sb = append(sb, []byte(`]}`)...)
	if err := os.WriteFile(path, sb, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func itoaTest(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func TestPollIgnoresUnchangedMtime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, 1)

	loop := eventloop.New()
	rec := &fakeReconciler{}
	w := Start(loop, path, rec, nil)
	defer w.Stop()

	w.poll()
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile on unchanged mtime, got %d calls", len(rec.calls))
	}
}

func TestPollReconcilesOnMtimeChangeAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, 1)

	loop := eventloop.New()
	rec := &fakeReconciler{}
	w := Start(loop, path, rec, nil)
	defer w.Stop()

	w.lastChange = time.Now().Add(-time.Second)
	time.Sleep(10 * time.Millisecond)
	writeConfig(t, path, 2)

	w.poll()
	if len(rec.calls) != 1 || rec.calls[0] != 2 {
		t.Fatalf("expected one reconcile with 2 apps, got %+v", rec.calls)
	}
}

func TestPollSilentlyRearmsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.json")

	loop := eventloop.New()
	rec := &fakeReconciler{}
	w := Start(loop, path, rec, nil)
	defer w.Stop()

	w.poll()
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile for missing file, got %+v", rec.calls)
	}
}
