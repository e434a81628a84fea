// Package interfaces defines service contracts for Keel
package interfaces

import (
	"context"
)

// SyncService reconstructs and persists an account's daily balance and
// holding history from its ledger entries.
type SyncService interface {
	// Sync recalculates one account. Same-account syncs are serialized;
	// different accounts may sync in parallel.
	Sync(ctx context.Context, accountID string) error

	// SyncAll syncs every account, isolating failures: one account's
	// error does not stop the others.
	SyncAll(ctx context.Context) error
}
