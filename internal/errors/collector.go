package errors

import (
	"sync"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// DefaultCollectorSize bounds how many preview errors are kept.
const DefaultCollectorSize = 100

// CollectedError is a preview runtime error with the time it was reported.
type CollectedError struct {
	types.PreviewError
	Timestamp time.Time `json:"timestamp"`
}

// ErrorCollector keeps the most recent preview runtime errors, oldest first.
type ErrorCollector struct {
	errors []CollectedError
	limit  int
	now    func() time.Time
	mutex  sync.RWMutex
}

// NewErrorCollector creates a collector holding at most limit errors. A
// non-positive limit uses DefaultCollectorSize.
func NewErrorCollector(limit int) *ErrorCollector {
	if limit <= 0 {
		limit = DefaultCollectorSize
	}
	return &ErrorCollector{limit: limit, now: time.Now}
}

// Add records a report, evicting the oldest one when full.
func (ec *ErrorCollector) Add(report types.PreviewError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()

	if len(ec.errors) == ec.limit {
		copy(ec.errors, ec.errors[1:])
		ec.errors = ec.errors[:len(ec.errors)-1]
	}
	ec.errors = append(ec.errors, CollectedError{PreviewError: report, Timestamp: ec.now()})
}

// Errors returns a copy of every collected error.
func (ec *ErrorCollector) Errors() []CollectedError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	result := make([]CollectedError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// ErrorsFor returns the errors reported for one component id.
func (ec *ErrorCollector) ErrorsFor(componentID string) []CollectedError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	result := make([]CollectedError, 0)
	for _, e := range ec.errors {
		if e.ComponentID == componentID {
			result = append(result, e)
		}
	}
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear drops the errors of one component, or all of them when componentID
// is empty.
func (ec *ErrorCollector) Clear(componentID string) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()

	if componentID == "" {
		ec.errors = ec.errors[:0]
		return
	}

	kept := ec.errors[:0]
	for _, e := range ec.errors {
		if e.ComponentID != componentID {
			kept = append(kept, e)
		}
	}
	ec.errors = kept
}
