package escrow

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"bidvault/core/events"
	"bidvault/native/amount"
)

var errNilState = errors.New("escrow engine: state not configured")
var errNilLedger = errors.New("escrow engine: ledger not configured")

// engineState is the record store the engine reads before and writes after
// every operation. Escrows are keyed by owner, bids by their identifier.
type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(owner [20]byte) (*Escrow, bool)
	BidPut(*Bid) error
	BidGet(id [32]byte) (*Bid, bool)
}

// Ledger is the external value-transfer primitive. An implementation must
// move the full amount from source to destination or fail without any
// partial movement.
type Ledger interface {
	Transfer(from, to [20]byte, amount uint64) error
}

// Engine validates authorization and balance invariants for the six escrow
// operations and mutates escrow/bid records plus the fund pool through the
// configured ledger. Operations on the same owner are serialized by a
// per-owner lock; operations on different owners proceed independently.
type Engine struct {
	state   engineState
	ledger  Ledger
	emitter events.Emitter
	policy  BidderPolicy
	nowFn   func() int64

	mu     sync.Mutex
	owners map[[20]byte]*sync.Mutex
}

// NewEngine creates an escrow engine with a no-op emitter and the default
// any-bidder policy. Callers wire state and ledger via the setters before
// invoking operations.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		owners:  make(map[[20]byte]*sync.Mutex),
	}
}

// SetState configures the record store used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the fund-movement backend used by the engine.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetBidderPolicy configures who may place bids against an escrow.
func (e *Engine) SetBidderPolicy(policy BidderPolicy) { e.policy = policy }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// lockOwner acquires the single-writer lock for an owner's escrow and its
// bids, which together form one consistency domain.
func (e *Engine) lockOwner(owner [20]byte) func() {
	e.mu.Lock()
	lock, ok := e.owners[owner]
	if !ok {
		lock = &sync.Mutex{}
		e.owners[owner] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// authorize compares the verified caller identity against the identity an
// operation requires. The engine never authenticates; the host has already
// established that the caller holds the claimed identity.
func authorize(caller, required [20]byte) error {
	if caller != required {
		return ErrUnauthorized
	}
	return nil
}

// PoolAddress derives the fund-pool identity holding an owner's escrowed
// value. The derivation is deterministic so the pool needs no stored mapping.
func PoolAddress(owner [20]byte) [20]byte {
	hash := ethcrypto.Keccak256Hash([]byte("escrow/pool"), owner[:])
	var pool [20]byte
	copy(pool[:], hash[12:])
	return pool
}

// BidID derives the identifier for the seq-th bid placed against an owner's
// escrow. Every placement bumps the escrow's sequence, so repeated bids with
// identical parameters still yield fresh records.
func BidID(owner, bidder [20]byte, seq uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return ethcrypto.Keccak256Hash(owner[:], bidder[:], buf[:])
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) loadEscrow(owner [20]byte) (*Escrow, error) {
	esc, ok := e.state.EscrowGet(owner)
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

func (e *Engine) loadBid(esc *Escrow, id [32]byte) (*Bid, error) {
	bid, ok := e.state.BidGet(id)
	if !ok {
		return nil, ErrBidNotFound
	}
	if bid.Escrow != esc.Owner {
		return nil, ErrBidMismatch
	}
	return bid, nil
}

func (e *Engine) transfer(from, to [20]byte, amt uint64) error {
	if err := e.ledger.Transfer(from, to, amt); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// Init creates the escrow record for an owner, moving the initial deposit
// from the owner into the fund pool when one is provided. Re-initialisation
// fails with ErrAlreadyExists.
func (e *Engine) Init(owner [20]byte, initialDeposit uint64) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.lockOwner(owner)()
	if _, ok := e.state.EscrowGet(owner); ok {
		return nil, ErrAlreadyExists
	}
	esc := &Escrow{Owner: owner, CreatedAt: e.now()}
	if initialDeposit > 0 {
		if err := e.transfer(owner, PoolAddress(owner), initialDeposit); err != nil {
			return nil, err
		}
		esc.DepositedAmount = initialDeposit
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return nil, err
	}
	e.emit(initializedEvent(esc))
	return esc.Clone(), nil
}

// Deposit adds funds to an existing escrow. Only the owner may deposit, and
// the deposited total is overflow-checked before any funds move so a failed
// addition never strands value in the pool.
func (e *Engine) Deposit(owner, caller [20]byte, amt uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	defer e.lockOwner(owner)()
	esc, err := e.loadEscrow(owner)
	if err != nil {
		return err
	}
	if err := authorize(caller, esc.Owner); err != nil {
		return err
	}
	deposited, err := amount.Add(esc.DepositedAmount, amt)
	if err != nil {
		return err
	}
	if err := e.transfer(caller, PoolAddress(owner), amt); err != nil {
		return err
	}
	esc.DepositedAmount = deposited
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(depositedEvent(esc, amt))
	return nil
}

// PlaceBid locks part of the escrow's available balance against a fresh bid
// record. No funds move; locking is a bookkeeping reservation.
func (e *Engine) PlaceBid(owner, bidder [20]byte, amt uint64) (*Bid, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	defer e.lockOwner(owner)()
	esc, err := e.loadEscrow(owner)
	if err != nil {
		return nil, err
	}
	if e.policy == PolicyOwnerOnly {
		if err := authorize(bidder, esc.Owner); err != nil {
			return nil, err
		}
	}
	available, err := esc.Available()
	if err != nil {
		return nil, err
	}
	if available < amt {
		return nil, ErrInsufficientFunds
	}
	locked, err := amount.Add(esc.LockedAmount, amt)
	if err != nil {
		return nil, err
	}
	seq := esc.BidSeq + 1
	bid := &Bid{
		ID:        BidID(owner, bidder, seq),
		Escrow:    owner,
		Bidder:    bidder,
		Amount:    amt,
		Active:    true,
		CreatedAt: e.now(),
	}
	if err := e.state.BidPut(bid); err != nil {
		return nil, err
	}
	esc.LockedAmount = locked
	esc.BidSeq = seq
	if err := e.state.EscrowPut(esc); err != nil {
		return nil, err
	}
	e.emit(bidPlacedEvent(esc, bid))
	return bid.Clone(), nil
}

// CancelBid terminates an active bid and refunds its locked amount from the
// fund pool back to the bidder. Cancellation is a withdrawal-with-refund, not
// a pure unlock: both deposited and locked totals shrink because the money
// leaves the pool for the bidder's wallet.
func (e *Engine) CancelBid(owner [20]byte, bidID [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	defer e.lockOwner(owner)()
	esc, err := e.loadEscrow(owner)
	if err != nil {
		return err
	}
	bid, err := e.loadBid(esc, bidID)
	if err != nil {
		return err
	}
	if err := authorize(caller, bid.Bidder); err != nil {
		return err
	}
	if !bid.Active {
		return ErrBidNotActive
	}
	locked, err := amount.Sub(esc.LockedAmount, bid.Amount)
	if err != nil {
		return err
	}
	deposited, err := amount.Sub(esc.DepositedAmount, bid.Amount)
	if err != nil {
		return err
	}
	if err := e.transfer(PoolAddress(owner), bid.Bidder, bid.Amount); err != nil {
		return err
	}
	bid.Active = false
	if err := e.state.BidPut(bid); err != nil {
		return err
	}
	esc.LockedAmount = locked
	esc.DepositedAmount = deposited
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(bidCancelledEvent(esc, bid))
	return nil
}

// ResolveBid finalises a winning bid selected by the escrow owner. The bid's
// amount is permanently deducted from both totals; disbursement to the winner
// is arranged outside the engine, so no ledger transfer occurs here.
func (e *Engine) ResolveBid(owner [20]byte, bidID [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	defer e.lockOwner(owner)()
	esc, err := e.loadEscrow(owner)
	if err != nil {
		return err
	}
	bid, err := e.loadBid(esc, bidID)
	if err != nil {
		return err
	}
	if err := authorize(caller, esc.Owner); err != nil {
		return err
	}
	if !bid.Active {
		return ErrBidNotActive
	}
	locked, err := amount.Sub(esc.LockedAmount, bid.Amount)
	if err != nil {
		return err
	}
	deposited, err := amount.Sub(esc.DepositedAmount, bid.Amount)
	if err != nil {
		return err
	}
	bid.Active = false
	if err := e.state.BidPut(bid); err != nil {
		return err
	}
	esc.LockedAmount = locked
	esc.DepositedAmount = deposited
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(bidResolvedEvent(esc, bid))
	return nil
}

// Withdraw moves unlocked funds from the pool back to the owner's wallet.
func (e *Engine) Withdraw(owner, caller [20]byte, amt uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	defer e.lockOwner(owner)()
	esc, err := e.loadEscrow(owner)
	if err != nil {
		return err
	}
	if err := authorize(caller, esc.Owner); err != nil {
		return err
	}
	available, err := esc.Available()
	if err != nil {
		return err
	}
	if available < amt {
		return ErrInsufficientFunds
	}
	deposited, err := amount.Sub(esc.DepositedAmount, amt)
	if err != nil {
		return err
	}
	if err := e.transfer(PoolAddress(owner), caller, amt); err != nil {
		return err
	}
	esc.DepositedAmount = deposited
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(withdrawnEvent(esc, amt))
	return nil
}

// Get returns a copy of the escrow record for an owner.
func (e *Engine) Get(owner [20]byte) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok := e.state.EscrowGet(owner)
	if !ok {
		return nil, ErrNotFound
	}
	return esc.Clone(), nil
}

// GetBid returns a copy of the bid record for an identifier.
func (e *Engine) GetBid(id [32]byte) (*Bid, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	bid, ok := e.state.BidGet(id)
	if !ok {
		return nil, ErrBidNotFound
	}
	return bid.Clone(), nil
}
