package save

import (
	"errors"
	"fmt"
)

// ErrNilItem is returned when a nil item is passed to the encoder.
var ErrNilItem = errors.New("save: nil item")

// EncodeError locates a failure inside an item tree. Path names the item by
// type code and socket position, e.g. "lsd/sockets[1]".
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("save: encoding item %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// PropertyError reports a property that cannot be written: an id outside
// [0, 254] or without a table entry, or a biased value that does not fit the
// stat's field.
type PropertyError struct {
	List   string
	ID     int
	Value  int64
	Width  uint
	Reason string
	Err    error
}

func (e *PropertyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s property %d: %v", e.List, e.ID, e.Err)
	}
	return fmt.Sprintf("%s property %d: %s (value %d, width %d)", e.List, e.ID, e.Reason, e.Value, e.Width)
}

func (e *PropertyError) Unwrap() error { return e.Err }
