// Package nserrors provides categorized, contextual errors for host-async
// failures that the graph must recover from without panicking the audio
// thread. Contract violations in the data plane use nscontract instead;
// this package is for errors that arrive from outside the process's
// control - device loss, file I/O, malformed configuration.
package nserrors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// ErrorCategory groups errors for logging and alerting.
type ErrorCategory string

const (
	CategoryHostAudio     ErrorCategory = "host-audio"
	CategoryDevice        ErrorCategory = "audio-device"
	CategorySoundFile     ErrorCategory = "sound-file"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategoryState         ErrorCategory = "state"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryResource      ErrorCategory = "resource"
	CategoryNetwork       ErrorCategory = "network"
	CategoryGeneric       ErrorCategory = "generic"
)

// Priority constants mirror the ones notification targets expect.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// EnhancedError wraps an error with component/category/context metadata.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	mu       sync.RWMutex
	reported bool
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

func (ee *EnhancedError) Is(target error) bool {
	var other *EnhancedError
	if stderrors.As(target, &other) {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetContext returns a defensive copy of the error's context map.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(ee.Context))
	maps.Copy(cp, ee.Context)
	return cp
}

// MarkReported records that this error has already been sent to telemetry,
// so a caller retrying the same operation does not double-report.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported reports whether MarkReported has been called.
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder accumulates context before producing an *EnhancedError.
type ErrorBuilder struct {
	err      error
	category ErrorCategory
	priority string
	context  map[string]any
}

// New starts a builder wrapping err. err may be nil for errors synthesized
// purely from a message via Newf.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf synthesizes an error from a format string and starts a builder.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (b *ErrorBuilder) Component(component string) *ErrorBuilder {
	b.context = ensureMap(b.context)
	b.context["component"] = component
	return b
}

func (b *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	b.category = category
	return b
}

func (b *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		b.priority = priority
	default:
		b.priority = PriorityMedium
	}
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	b.context = ensureMap(b.context)
	b.context[key] = value
	return b
}

// DeviceContext records which audio device and backend an error came from.
func (b *ErrorBuilder) DeviceContext(deviceName, backend string) *ErrorBuilder {
	return b.Context("device_name", deviceName).Context("backend", backend)
}

// FileContext records which sound file an error came from.
func (b *ErrorBuilder) FileContext(path string, size int64) *ErrorBuilder {
	return b.Context("file_path", path).Context("file_size", size)
}

// Build finalizes the builder into an *EnhancedError.
func (b *ErrorBuilder) Build() *EnhancedError {
	component := ComponentUnknown
	if b.context != nil {
		if c, ok := b.context["component"].(string); ok {
			component = c
			delete(b.context, "component")
		}
	}
	err := b.err
	if err == nil {
		err = stderrors.New("unspecified error")
	}
	return &EnhancedError{
		Err:       err,
		Component: component,
		Category:  b.category,
		Priority:  b.priority,
		Context:   b.context,
		Timestamp: time.Now(),
	}
}

// ComponentUnknown is used when no component was set on the builder.
const ComponentUnknown = "unknown"

func ensureMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any, 4)
	}
	return m
}

// IsCategory reports whether err is an *EnhancedError in the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return stderrors.As(err, &ee) && ee.Category == category
}

// Standard library passthroughs so call sites can depend on this package alone.
func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error { return stderrors.Join(errs...) }
