package net

import "errors"

// ErrInvalidConfig is returned for an empty network, adjacent layers whose
// sizes disagree, a non-positive batch size or clip threshold, and a missing
// loss or optimizer.
var ErrInvalidConfig = errors.New("net: invalid configuration")
