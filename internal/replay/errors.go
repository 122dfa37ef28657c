package replay

import "errors"

// ErrInvalidOrdering is returned when journal sequences have a gap or repeat.
var ErrInvalidOrdering = errors.New("journal is not in contiguous sequence order")
