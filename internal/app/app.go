// Package app wires configuration, storage, clients, and services into a
// running Keel instance shared by every command.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/keelfin/keel/internal/clients/synth"
	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/services/balance"
	"github.com/keelfin/keel/internal/services/holding"
	"github.com/keelfin/keel/internal/services/sync"
	"github.com/keelfin/keel/internal/storage/badger"
)

// App holds all initialized services and storage.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	Syncer                *sync.Syncer
	OpeningManager        *balance.OpeningManager
	CurrentManager        *balance.CurrentManager
	ReconciliationManager *balance.ReconciliationManager
}

// New initializes the application. configPath may be empty, in which case
// KEEL_CONFIG and then keel.toml next to the binary are tried.
func New(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("KEEL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binaryDir(), "keel.toml")
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binaryDir(), config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storage, err := badger.NewManager(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var priceProvider interfaces.PriceProvider
	var rateProvider interfaces.RateProvider
	if config.Provider.APIKey != "" {
		client := synth.NewClient(config.Provider.APIKey,
			synth.WithBaseURL(config.Provider.BaseURL),
			synth.WithLogger(logger),
			synth.WithTimeout(config.Provider.GetTimeout()),
			synth.WithRateLimit(config.Provider.RateLimit),
		)
		priceProvider = client
		rateProvider = client
	} else {
		logger.Warn().Msg("No provider API key configured, using locally stored prices and rates only")
	}

	holdings := holding.NewCalculator(storage, priceProvider, logger)
	forward := balance.NewForwardCalculator(storage, rateProvider, holdings, logger)
	reverse := balance.NewReverseCalculator(storage, rateProvider, holdings, logger)
	materializer := balance.NewMaterializer(storage, logger)

	return &App{
		Config:                config,
		Logger:                logger,
		Storage:               storage,
		Syncer:                sync.NewSyncer(storage, forward, reverse, holdings, materializer, config.Sync.Workers, logger),
		OpeningManager:        balance.NewOpeningManager(storage, logger),
		CurrentManager:        balance.NewCurrentManager(storage, logger),
		ReconciliationManager: balance.NewReconciliationManager(storage, logger),
	}, nil
}

// Close releases storage resources.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}

func binaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
