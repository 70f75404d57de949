package domain

import "errors"

// Error taxonomy of the auction engine. Every failed call is surfaced
// synchronously and leaves all state exactly as before the call; callers
// match with errors.Is.
var (
	// ErrInvalidParameters is returned when StartAuction is given a
	// non-positive quantity/duration or a negative price/rate.
	ErrInvalidParameters = errors.New("invalid auction parameters")

	// ErrAlreadyStarted is returned on a second StartAuction attempt.
	// An instance can be started at most once in its lifetime.
	ErrAlreadyStarted = errors.New("auction already started")

	// ErrNotStarted is returned when CurrentPrice is read before start.
	ErrNotStarted = errors.New("auction not started")

	// ErrNotActive is returned when Buy is attempted before start.
	ErrNotActive = errors.New("auction not active")

	// ErrAuctionEnded is returned when Buy is attempted after the ended
	// latch has been set. Buy is not idempotent: a repeat of a successful
	// call fails here rather than silently succeeding.
	ErrAuctionEnded = errors.New("auction ended")

	// ErrInsufficientPayment is returned when the offered payment is below
	// the price computed at the settlement instant.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrInsufficientFunds is returned by the ledger when a debit exceeds
	// the account balance. No movement of the batch is applied.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAuction is returned by the service registry for an
	// unregistered auction ID.
	ErrUnknownAuction = errors.New("unknown auction")
)
