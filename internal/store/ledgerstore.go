package store

import (
	"context"
	"fmt"

	"github.com/safeira/iglootrack/internal/ledger"
)

// LedgerStore loads and saves the whole ledger blob. There is no partial
// update: every mutation is a read-modify-write performed by the tracker.
type LedgerStore struct {
	kv KV
}

// NewLedgerStore wraps a KV backend.
func NewLedgerStore(kv KV) *LedgerStore {
	return &LedgerStore{kv: kv}
}

// Load returns the persisted ledger. Absent, unreadable, or malformed
// blobs load as an empty ledger; a corrupt store must not take the
// tracker down with it.
func (s *LedgerStore) Load(ctx context.Context) ledger.Ledger {
	blob, ok, err := s.kv.Get(ctx, LedgerKey)
	if err != nil || !ok {
		return make(ledger.Ledger)
	}
	return ledger.Unmarshal(blob)
}

// Save persists the ledger.
func (s *LedgerStore) Save(ctx context.Context, l ledger.Ledger) error {
	blob, err := ledger.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := s.kv.Set(ctx, LedgerKey, blob); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}
