package round

import "errors"

// ErrRoundInProgress is returned when a round is already active for the
// league; finalize it or wait for the timer.
var ErrRoundInProgress = errors.New("bidding round already in progress")

// ErrNoActiveRound is returned for bid/skip/finalize signals when no
// round is open for the league.
var ErrNoActiveRound = errors.New("no active bidding round")
