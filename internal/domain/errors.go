package domain

import "errors"

// ErrMissingContact is returned when a notification target has no address
// for a channel its preference requires.
var ErrMissingContact = errors.New("missing contact for channel")
