// Package ledger provides the value-transfer primitive the escrow engine
// moves funds through. A transfer either fully commits or fails with no
// partial movement.
package ledger

import (
	"errors"
	"sync"

	"bidvault/core/types"
	"bidvault/native/amount"
)

var (
	// ErrInsufficientBalance is returned when the source account cannot cover
	// the transfer.
	ErrInsufficientBalance = errors.New("ledger: insufficient source balance")
	errNilState            = errors.New("ledger: account state not configured")
)

// AccountState is the durable account store backing the ledger.
type AccountState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Ledger moves unsigned 64-bit value between account identities. A single
// mutex serializes transfers so the read-modify-write on two accounts is
// atomic with respect to other transfers.
type Ledger struct {
	mu    sync.Mutex
	state AccountState
}

// New creates a ledger over the supplied account state.
func New(state AccountState) *Ledger {
	return &Ledger{state: state}
}

// Transfer moves amt from source to destination, failing without movement
// when the source balance is short or the destination balance would overflow.
// Zero-amount and self transfers are no-ops.
func (l *Ledger) Transfer(from, to [20]byte, amt uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amt == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance < amt {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	newFrom, err := amount.Sub(fromAcc.Balance, amt)
	if err != nil {
		return err
	}
	newTo, err := amount.Add(toAcc.Balance, amt)
	if err != nil {
		return err
	}
	fromAcc.Balance = newFrom
	toAcc.Balance = newTo
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}

// Mint credits freshly issued value to an account. It backs the development
// faucet and genesis funding; production deployments disable the RPC surface
// that reaches it.
func (l *Ledger) Mint(to [20]byte, amt uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amt == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	balance, err := amount.Add(acc.Balance, amt)
	if err != nil {
		return err
	}
	acc.Balance = balance
	return l.state.PutAccount(to, acc)
}

// Balance reports the current balance of an account.
func (l *Ledger) Balance(addr [20]byte) (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}
