package errors

import (
	stderrors "errors"
	"log/slog"
	"maps"
	"slices"
)

// ClassifiedError carries a category, a short message for the operator, and
// key/value context alongside the underlying cause.
type ClassifiedError struct {
	category   ErrorCategory
	message    string
	cause      error
	fields     map[string]any
	retryable  bool
	userAction bool
}

func (e *ClassifiedError) Error() string {
	s := "[" + string(e.category) + "] " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }

// Message is the message without category or cause.
func (e *ClassifiedError) Message() string { return e.message }

// Retryable reports whether trying the same operation again may succeed.
func (e *ClassifiedError) Retryable() bool { return e.retryable }

// NeedsUserAction reports whether the operator has to fix something first.
func (e *ClassifiedError) NeedsUserAction() bool { return e.userAction }

// Field returns one context value.
func (e *ClassifiedError) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Fields returns a copy of the context.
func (e *ClassifiedError) Fields() map[string]any { return maps.Clone(e.fields) }

// WithContext returns a copy of e with key set.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	next := *e
	next.fields = maps.Clone(e.fields)
	if next.fields == nil {
		next.fields = make(map[string]any, 1)
	}
	next.fields[key] = value
	return &next
}

// Is matches another ClassifiedError with the same category and message, so
// package-level sentinels work with errors.Is.
func (e *ClassifiedError) Is(target error) bool {
	if other, ok := target.(*ClassifiedError); ok {
		return e.category == other.category && e.message == other.message
	}
	return false
}

// LogAttrs renders the error as slog attributes, context keys sorted.
func (e *ClassifiedError) LogAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.fields)+3)
	attrs = append(attrs, slog.String("category", string(e.category)))
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if e.retryable {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	for _, k := range slices.Sorted(maps.Keys(e.fields)) {
		attrs = append(attrs, slog.Any(k, e.fields[k]))
	}
	return attrs
}

// AsClassified returns the first ClassifiedError in the chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory reports whether the first classified error in the chain is in category.
func HasCategory(err error, category ErrorCategory) bool {
	if classified, ok := AsClassified(err); ok {
		return classified.category == category
	}
	return false
}

// CategoryOf returns the category of the first classified error in the chain,
// or CategoryInternal.
func CategoryOf(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.category
	}
	return CategoryInternal
}

// IsRetryable reports whether the first classified error in the chain is
// marked retryable. Unclassified errors are not.
func IsRetryable(err error) bool {
	if classified, ok := AsClassified(err); ok {
		return classified.retryable
	}
	return false
}
