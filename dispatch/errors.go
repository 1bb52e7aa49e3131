package dispatch

import "errors"

// ErrBadQuoting indicates that add-response arguments could not be split into a key and a response.
var ErrBadQuoting = errors.New("malformed quoted arguments")
