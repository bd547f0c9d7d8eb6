package escrow

import (
	"errors"

	"bidvault/native/amount"
)

var (
	// ErrAlreadyExists is returned when an escrow is initialised twice for the
	// same owner.
	ErrAlreadyExists = errors.New("escrow: already exists for owner")
	// ErrNotFound is returned when no escrow exists for the owner key.
	ErrNotFound = errors.New("escrow: not found")
	// ErrBidNotFound is returned when no bid exists for the identifier.
	ErrBidNotFound = errors.New("escrow: bid not found")
	// ErrBidMismatch is returned when a bid does not belong to the named escrow.
	ErrBidMismatch = errors.New("escrow: bid does not reference escrow")
	// ErrInsufficientFunds is returned when the requested amount exceeds the
	// escrow's available (deposited minus locked) balance.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	// ErrBidNotActive is returned when an operation targets a bid that has
	// already been cancelled or resolved.
	ErrBidNotActive = errors.New("escrow: bid not active")
	// ErrUnauthorized is returned when the caller identity does not match the
	// identity the operation requires.
	ErrUnauthorized = errors.New("escrow: unauthorized caller")
	// ErrTransferFailed wraps a ledger refusal to move funds.
	ErrTransferFailed = errors.New("escrow: transfer failed")
)

// Escrow tracks the funds a single owner has deposited into their bidding
// pool and how much of that total is committed to active bids. The owner
// address is the record key; one escrow exists per owner.
type Escrow struct {
	Owner           [20]byte
	DepositedAmount uint64
	LockedAmount    uint64
	BidSeq          uint64
	CreatedAt       int64
}

// Available derives the withdrawable portion of the escrow. It is never
// stored; locked can only exceed deposited when the increment/decrement
// discipline in the engine has been violated, in which case the underflow
// surfaces here instead of wrapping.
func (e *Escrow) Available() (uint64, error) {
	if e == nil {
		return 0, ErrNotFound
	}
	return amount.Sub(e.DepositedAmount, e.LockedAmount)
}

// Clone returns a copy of the escrow so callers can mutate it without
// affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// Bid is a reservation against an escrow's deposited funds. The amount is
// immutable after creation; Active flips to false exactly once, on cancel or
// resolve.
type Bid struct {
	ID        [32]byte
	Escrow    [20]byte
	Bidder    [20]byte
	Amount    uint64
	Active    bool
	CreatedAt int64
}

// Clone returns a copy of the bid.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// BidderPolicy controls who may lock funds against an escrow. The refund
// model of cancellation only makes economic sense when the bidder is the
// depositor, so deployments can restrict bidding to the escrow owner.
type BidderPolicy uint8

const (
	// PolicyAnyBidder admits any authenticated caller as a bidder.
	PolicyAnyBidder BidderPolicy = iota
	// PolicyOwnerOnly requires the bidder to be the escrow owner.
	PolicyOwnerOnly
)

// ParseBidderPolicy maps a configuration string onto a policy value.
func ParseBidderPolicy(s string) (BidderPolicy, error) {
	switch s {
	case "", "any":
		return PolicyAnyBidder, nil
	case "owner":
		return PolicyOwnerOnly, nil
	default:
		return PolicyAnyBidder, errors.New("escrow: unknown bidder policy " + s)
	}
}
