package types

import "errors"

var (
	ErrNotInitialized           = errors.New("not yet initialized")
	ErrAlreadyInitialized       = errors.New("already initialized")
	ErrInvalidConfig            = errors.New("invalid config")
	ErrContributionWindowClosed = errors.New("cannot contribute after contribution window closed")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInsufficientShares       = errors.New("not enough shares")
	ErrInsufficientFunds        = errors.New("not enough available funds")
	ErrNotAMember               = errors.New("not a member")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrProposalNotFound         = errors.New("proposal not found")
	ErrProposalExpired          = errors.New("proposal voting has ended")
	ErrProposalNotYetEnded      = errors.New("proposal voting has not ended")
	ErrProposalAlreadyEnded     = errors.New("proposal already ended")
	ErrDuplicateVote            = errors.New("already voted")
	ErrExternalTransferFailed   = errors.New("external transfer failed")
)

var (
	ErrInvalidProposal    = errors.New("invalid proposal")
	ErrProposalBusy       = errors.New("proposal execution in progress")
	ErrInsufficientLocked = errors.New("not enough locked funds")
	ErrInvariantViolation = errors.New("ledger invariant violated")
	ErrTransferPending    = errors.New("payment rail outcome pending")
)
