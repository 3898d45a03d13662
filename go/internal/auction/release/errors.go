package release

import "errors"

// ErrWindowClosed is returned for release-window actions after the
// window closed (or before it opened).
var ErrWindowClosed = errors.New("release window closed")

// ErrNotOwned is returned when a participant selects a player that is
// not a validly owned uncontested pick of theirs.
var ErrNotOwned = errors.New("player not owned by participant")

// ErrAlreadySubmitted is returned when a participant tries to change or
// re-submit selections after submitting.
var ErrAlreadySubmitted = errors.New("release choices already submitted")
