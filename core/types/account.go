package types

// Account is the ledger-side record for a single address. Balances are
// unsigned 64-bit magnitudes; every mutation routes through the checked
// helpers in native/amount so wraparound is unrepresentable.
type Account struct {
	Nonce   uint64 `json:"nonce"`
	Balance uint64 `json:"balance"`
}

// Clone returns a copy of the account so callers can mutate it without
// affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}
