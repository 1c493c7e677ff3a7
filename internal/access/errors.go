package access

import "errors"

// ErrValidation marks a malformed request. It is rejected before any lookup.
var ErrValidation = errors.New("invalid access request")
