// Package state persists ledger accounts and escrow/bid records over a
// generic key-value database, RLP-encoding each record.
package state

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"bidvault/core/types"
	"bidvault/native/escrow"
	"bidvault/storage"
)

const (
	accountKeyFormat = "state/account/%s"
	escrowKeyFormat  = "state/escrow/%s"
	bidKeyFormat     = "state/bid/%s"
)

// Manager is the durable record store behind the escrow engine and ledger.
// Reads return copies; callers commit mutations with the corresponding Put.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager creates a record store over the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf(accountKeyFormat, hex.EncodeToString(addr[:])))
}

func escrowKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf(escrowKeyFormat, hex.EncodeToString(owner[:])))
}

func bidKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf(bidKeyFormat, hex.EncodeToString(id[:])))
}

// storedEscrow is the RLP wire form of an escrow record. RLP has no signed
// integer support, so the creation timestamp is persisted as uint64.
type storedEscrow struct {
	Owner           [20]byte
	DepositedAmount uint64
	LockedAmount    uint64
	BidSeq          uint64
	CreatedAt       uint64
}

type storedBid struct {
	ID        [32]byte
	Escrow    [20]byte
	Bidder    [20]byte
	Amount    uint64
	Active    bool
	CreatedAt uint64
}

type storedAccount struct {
	Nonce   uint64
	Balance uint64
}

// GetAccount loads the account for an address, returning a zero-valued
// account when none has been stored yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return &types.Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}, nil
}

// PutAccount persists the account record for an address.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := rlp.EncodeToBytes(&storedAccount{Nonce: account.Nonce, Balance: account.Balance})
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.db.Put(accountKey(addr), raw)
}

// EscrowPut persists an escrow record keyed by its owner.
func (m *Manager) EscrowPut(esc *escrow.Escrow) error {
	if esc == nil {
		return errors.New("state: nil escrow")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &storedEscrow{
		Owner:           esc.Owner,
		DepositedAmount: esc.DepositedAmount,
		LockedAmount:    esc.LockedAmount,
		BidSeq:          esc.BidSeq,
		CreatedAt:       uint64(esc.CreatedAt),
	}
	raw, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode escrow: %w", err)
	}
	return m.db.Put(escrowKey(esc.Owner), raw)
}

// EscrowGet loads the escrow record for an owner.
func (m *Manager) EscrowGet(owner [20]byte) (*escrow.Escrow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, err := m.db.Get(escrowKey(owner))
	if err != nil {
		return nil, false
	}
	var stored storedEscrow
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	return &escrow.Escrow{
		Owner:           stored.Owner,
		DepositedAmount: stored.DepositedAmount,
		LockedAmount:    stored.LockedAmount,
		BidSeq:          stored.BidSeq,
		CreatedAt:       int64(stored.CreatedAt),
	}, true
}

// BidPut persists a bid record keyed by its identifier.
func (m *Manager) BidPut(bid *escrow.Bid) error {
	if bid == nil {
		return errors.New("state: nil bid")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &storedBid{
		ID:        bid.ID,
		Escrow:    bid.Escrow,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount,
		Active:    bid.Active,
		CreatedAt: uint64(bid.CreatedAt),
	}
	raw, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode bid: %w", err)
	}
	return m.db.Put(bidKey(bid.ID), raw)
}

// BidGet loads the bid record for an identifier.
func (m *Manager) BidGet(id [32]byte) (*escrow.Bid, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, err := m.db.Get(bidKey(id))
	if err != nil {
		return nil, false
	}
	var stored storedBid
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false
	}
	return &escrow.Bid{
		ID:        stored.ID,
		Escrow:    stored.Escrow,
		Bidder:    stored.Bidder,
		Amount:    stored.Amount,
		Active:    stored.Active,
		CreatedAt: int64(stored.CreatedAt),
	}, true
}
