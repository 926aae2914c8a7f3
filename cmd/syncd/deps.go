package main

import (
	"log"

	"github.com/hoiekim/budget-sub000/internal/domain/security"
	"github.com/hoiekim/budget-sub000/internal/domain/snapshot"
	"github.com/hoiekim/budget-sub000/internal/domain/sync"
	"github.com/hoiekim/budget-sub000/internal/infrastructure/crypto"
	"github.com/hoiekim/budget-sub000/internal/infrastructure/plaid"
	"github.com/hoiekim/budget-sub000/internal/infrastructure/postgres"
	"github.com/hoiekim/budget-sub000/internal/infrastructure/simplefin"
	"github.com/hoiekim/budget-sub000/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Repositories (for scheduler job provider)
	ItemRepo *postgres.ItemRepository

	// Sync services (for scheduler)
	PlaidSync     *sync.PlaidSyncService
	SimpleFinSync *sync.SimpleFinSyncService
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	log.Println("Connected to database")

	// Access tokens are encrypted at rest; the item repository is the
	// encryption boundary.
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	itemRepo := postgres.NewItemRepository(db, encryptor)
	accountRepo := postgres.NewAccountRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	investmentRepo := postgres.NewInvestmentRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)

	// Both provider routines share one engine and one security resolver so
	// canonical security ids stay consistent across items.
	engine := snapshot.NewEngine(snapshotRepo, nil)
	resolver := security.NewResolver(securityRepo, nil)

	plaidSync := sync.NewPlaidSyncService(
		plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment),
		itemRepo, engine, resolver,
		accountRepo, holdingRepo, securityRepo, transactionRepo, investmentRepo,
		nil,
	)
	simpleFinSync := sync.NewSimpleFinSyncService(
		simplefin.NewClient(),
		itemRepo, engine, resolver,
		accountRepo, holdingRepo, securityRepo, transactionRepo, investmentRepo,
		nil,
	)

	return &Dependencies{
		DB:            db,
		ItemRepo:      itemRepo,
		PlaidSync:     plaidSync,
		SimpleFinSync: simpleFinSync,
	}, nil
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() {
	if err := d.DB.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
