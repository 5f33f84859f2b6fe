package scoring

import "errors"

// ErrUnavailable indicates the engine could not produce a result: it was unreachable,
// timed out, answered non-2xx, or returned a body that is not a JSON object.
var ErrUnavailable = errors.New("scoring engine unavailable")
