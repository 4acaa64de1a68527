package usage

import "errors"

// ErrUnknownCounter indicates a counter name outside the fixed set.
var ErrUnknownCounter = errors.New("unknown counter")
