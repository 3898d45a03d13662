package engine

import "errors"

// ErrNoActiveAuction is returned when no auction session exists for the
// league.
var ErrNoActiveAuction = errors.New("no active auction session")

// ErrAuctionInProgress is returned when starting an auction for a league
// whose session is already active.
var ErrAuctionInProgress = errors.New("auction session already in progress")

// ErrQueueExhausted signals that the contested-player queue is empty and
// the auction cycle has completed.
var ErrQueueExhausted = errors.New("auction queue exhausted")
