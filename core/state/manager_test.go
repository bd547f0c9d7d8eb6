package state_test

import (
	"bytes"
	"testing"

	"bidvault/core/state"
	escrowpkg "bidvault/native/escrow"
	"bidvault/storage"
)

func newTestManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return state.NewManager(db)
}

func TestManagerEscrowPutGet(t *testing.T) {
	mgr := newTestManager(t)
	var owner [20]byte
	copy(owner[:], bytes.Repeat([]byte{0x01}, 20))

	escrowDef := &escrowpkg.Escrow{
		Owner:           owner,
		DepositedAmount: 1_000_000,
		LockedAmount:    250_000,
		BidSeq:          3,
		CreatedAt:       1_695_000_000,
	}
	if err := mgr.EscrowPut(escrowDef); err != nil {
		t.Fatalf("EscrowPut: %v", err)
	}

	stored, ok := mgr.EscrowGet(owner)
	if !ok {
		t.Fatalf("EscrowGet: expected escrow to exist")
	}
	if *stored != *escrowDef {
		t.Fatalf("EscrowGet: got %+v, want %+v", stored, escrowDef)
	}

	var other [20]byte
	copy(other[:], bytes.Repeat([]byte{0x02}, 20))
	if _, ok := mgr.EscrowGet(other); ok {
		t.Fatalf("EscrowGet: unexpected escrow for unknown owner")
	}
}

func TestManagerBidPutGet(t *testing.T) {
	mgr := newTestManager(t)
	var owner [20]byte
	copy(owner[:], bytes.Repeat([]byte{0x01}, 20))
	var bidder [20]byte
	copy(bidder[:], bytes.Repeat([]byte{0x02}, 20))

	bid := &escrowpkg.Bid{
		ID:        escrowpkg.BidID(owner, bidder, 1),
		Escrow:    owner,
		Bidder:    bidder,
		Amount:    42_000,
		Active:    true,
		CreatedAt: 1_695_000_000,
	}
	if err := mgr.BidPut(bid); err != nil {
		t.Fatalf("BidPut: %v", err)
	}

	stored, ok := mgr.BidGet(bid.ID)
	if !ok {
		t.Fatalf("BidGet: expected bid to exist")
	}
	if *stored != *bid {
		t.Fatalf("BidGet: got %+v, want %+v", stored, bid)
	}

	bid.Active = false
	if err := mgr.BidPut(bid); err != nil {
		t.Fatalf("BidPut settled: %v", err)
	}
	stored, ok = mgr.BidGet(bid.ID)
	if !ok || stored.Active {
		t.Fatalf("BidGet after settle: got %+v", stored)
	}
}

func TestManagerAccountDefaults(t *testing.T) {
	mgr := newTestManager(t)
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{0x07}, 20))

	acc, err := mgr.GetAccount(addr)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.Balance != 0 || acc.Nonce != 0 {
		t.Fatalf("GetAccount default: got %+v", acc)
	}

	acc.Balance = 777
	acc.Nonce = 3
	if err := mgr.PutAccount(addr, acc); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	reloaded, err := mgr.GetAccount(addr)
	if err != nil {
		t.Fatalf("GetAccount reload: %v", err)
	}
	if *reloaded != *acc {
		t.Fatalf("GetAccount reload: got %+v, want %+v", reloaded, acc)
	}
}
