// Package outcome records whether a pipeline stage produced a model value or
// substituted its fallback sentinel.
package outcome

// Outcome is the result of a stage that absorbs its own expected failures.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	// Err is the suppressed cause when Fallback is set, nil otherwise.
	Err error
}

// Success wraps a value produced by the underlying model.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fallback wraps a sentinel value substituted for a model result.
func Fallback[T any](v T, cause error) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Err: cause}
}

// Succeeded reports whether the value came from the model.
func (o Outcome[T]) Succeeded() bool {
	return !o.Fallback
}
