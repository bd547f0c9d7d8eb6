package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"bidvault/core/types"
)

type memAccounts struct {
	accounts map[[20]byte]*types.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: make(map[[20]byte]*types.Account)}
}

func (m *memAccounts) GetAccount(addr [20]byte) (*types.Account, error) {
	return m.accounts[addr].Clone(), nil
}

func (m *memAccounts) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestTransfer(t *testing.T) {
	state := newMemAccounts()
	l := New(state)
	alice, bob := addr(0x01), addr(0x02)
	require.NoError(t, l.Mint(alice, 1_000))

	require.NoError(t, l.Transfer(alice, bob, 400))

	aliceBal, err := l.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(600), aliceBal)
	bobBal, err := l.Balance(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(400), bobBal)
}

func TestTransferInsufficient(t *testing.T) {
	state := newMemAccounts()
	l := New(state)
	alice, bob := addr(0x01), addr(0x02)
	require.NoError(t, l.Mint(alice, 100))

	err := l.Transfer(alice, bob, 101)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	aliceBal, err := l.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(100), aliceBal)
	bobBal, err := l.Balance(bob)
	require.NoError(t, err)
	require.Zero(t, bobBal)
}

func TestTransferNoOps(t *testing.T) {
	state := newMemAccounts()
	l := New(state)
	alice, bob := addr(0x01), addr(0x02)
	require.NoError(t, l.Mint(alice, 100))

	require.NoError(t, l.Transfer(alice, bob, 0))
	require.NoError(t, l.Transfer(alice, alice, 50))

	aliceBal, err := l.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(100), aliceBal)
}

func TestTransferDestinationOverflow(t *testing.T) {
	state := newMemAccounts()
	l := New(state)
	alice, bob := addr(0x01), addr(0x02)
	require.NoError(t, l.Mint(alice, 10))
	require.NoError(t, l.Mint(bob, math.MaxUint64))

	err := l.Transfer(alice, bob, 1)
	require.Error(t, err)

	aliceBal, err := l.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10), aliceBal)
}

func TestMintOverflow(t *testing.T) {
	state := newMemAccounts()
	l := New(state)
	alice := addr(0x01)
	require.NoError(t, l.Mint(alice, math.MaxUint64))
	require.Error(t, l.Mint(alice, 1))
}
