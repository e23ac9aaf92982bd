package engine

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// FormatError renders any error returned by a goja call into the plaintext
// message the Request Engine puts in a 500/504 body (spec.md §4.9). It
// distinguishes an engine-requested termination (watchdog or request-spin
// deadline) from an ordinary uncaught JS exception, following the same
// switch shape as the teacher's functions.runtimeError.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v := interrupted.Value(); v != nil {
			return fmt.Sprintf("execution terminated: %v", v)
		}
		return "execution terminated"
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.Error()
	}
	return err.Error()
}

// IsTermination reports whether err originated from Runtime.Interrupt,
// which the Request Engine maps onto a 504-style response rather than a
// generic 500.
func IsTermination(err error) bool {
	var interrupted *goja.InterruptedError
	return errors.As(err, &interrupted)
}

// PromiseResult resolves a settled goja.Promise into (value, error),
// rejecting with a formatted error the same way the teacher's
// promiseRejectionError does.
func PromiseResult(p *goja.Promise) (goja.Value, error) {
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		reason := p.Result()
		if reason == nil {
			return nil, errors.New("promise rejected")
		}
		if exported := reason.Export(); exported != nil {
			if asErr, ok := exported.(error); ok {
				return nil, asErr
			}
			return nil, fmt.Errorf("promise rejected: %v", exported)
		}
		return nil, fmt.Errorf("promise rejected: %s", reason.String())
	default:
		return nil, errors.New("promise not settled")
	}
}

// AsPromise extracts a *goja.Promise from a goja.Value, if it is one.
func AsPromise(v goja.Value) (*goja.Promise, bool) {
	if v == nil {
		return nil, false
	}
	exported := v.Export()
	p, ok := exported.(*goja.Promise)
	return p, ok
}
