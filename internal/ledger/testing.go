package ledger

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory backend. It bypasses the credit path on purpose so tests can
// arrange starting balances without minting deposits.
func SeedBalance(l Ledger, ownerID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		mw := mem.byOwner[ownerID]
		mem.mu.Unlock()
		if mw != nil {
			mw.mu.Lock()
			mw.w.Balance = amount
			mw.mu.Unlock()
		}
	}
}
