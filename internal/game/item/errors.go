package item

import (
	"errors"
	"fmt"
)

// ValidationError reports one invariant violated by an item Spec.
// Field is a dotted path into the spec, e.g. "children[1].extended.level".
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("item: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("item: %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// validator collects every violation so callers see them all at once.
type validator struct {
	errs []error
}

func (v *validator) add(field string, value any, reason string) {
	v.errs = append(v.errs, &ValidationError{Field: field, Value: value, Reason: reason})
}

// bits checks that n fits an unsigned field of width bits.
func (v *validator) bits(field string, n int, width uint) {
	if n < 0 || n >= 1<<width {
		v.add(field, n, fmt.Sprintf("must fit in %d bits (0-%d)", width, 1<<width-1))
	}
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}
