package errors

import (
	"fmt"
	"sync"
)

// Warning is a non-fatal condition, for example an optimiser stopping before
// convergence. Warnings are delivered to the registered handler.
type Warning interface {
	error
	warning()
}

// ConvergenceWarning is raised when an iterative algorithm stops early.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s: %s did not converge after %d iterations: %s",
		prefix, w.Algorithm, w.Iterations, w.Message)
}

func (w *ConvergenceWarning) warning() {}

// NewConvergenceWarning creates a ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

var (
	warnMu      sync.RWMutex
	warnHandler = func(Warning) {}
)

// SetWarningHandler installs fn as the receiver of warnings and returns the
// previous handler.
func SetWarningHandler(fn func(Warning)) func(Warning) {
	warnMu.Lock()
	defer warnMu.Unlock()
	prev := warnHandler
	if fn == nil {
		fn = func(Warning) {}
	}
	warnHandler = fn
	return prev
}

// Warn delivers w to the current handler.
func Warn(w Warning) {
	warnMu.RLock()
	h := warnHandler
	warnMu.RUnlock()
	h(w)
}
