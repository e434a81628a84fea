package badger

import (
	"fmt"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
)

// Compile-time interface check
var _ interfaces.StorageManager = (*Manager)(nil)

// Manager bundles all BadgerHold-backed stores over one database.
type Manager struct {
	store *Store

	accounts   *accountStore
	entries    *entryStore
	balances   *balanceStore
	holdings   *holdingStore
	securities *securityStore
	rates      *rateStore
}

// NewManager opens the database at path and wires every store.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return &Manager{
		store:      store,
		accounts:   newAccountStore(store, logger),
		entries:    newEntryStore(store, logger),
		balances:   newBalanceStore(store, logger),
		holdings:   newHoldingStore(store, logger),
		securities: newSecurityStore(store, logger),
		rates:      newRateStore(store, logger),
	}, nil
}

func (m *Manager) AccountStore() interfaces.AccountStore   { return m.accounts }
func (m *Manager) EntryStore() interfaces.EntryStore       { return m.entries }
func (m *Manager) BalanceStore() interfaces.BalanceStore   { return m.balances }
func (m *Manager) HoldingStore() interfaces.HoldingStore   { return m.holdings }
func (m *Manager) SecurityStore() interfaces.SecurityStore { return m.securities }
func (m *Manager) RateStore() interfaces.RateStore         { return m.rates }

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.store.Close()
}
