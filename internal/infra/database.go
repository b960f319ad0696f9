package infra

import (
	"fmt"

	"tallypos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies idempotent SQL patches that GORM
// cannot express (partial unique indexes, sequences).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the schema and applies the raw-SQL patches. Also used
// by integration tests against throwaway databases.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CustomerAccount{},
		&model.Product{},
		&model.ProductVariation{},
		&model.LedgerEntry{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle.
// Each statement uses IF NOT EXISTS semantics so re-running on an
// already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Receipt numbers come from a sequence so concurrent terminals never
		// collide on nextval.
		{"orders number sequence",
			`CREATE SEQUENCE IF NOT EXISTS orders_number_seq START 1000`},

		// Online-payment idempotency: at most one applied payment entry per
		// gateway reference. The service-level pre-check closes the common
		// path; this index closes the concurrent race.
		{"unique payment reference", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_ledger_payment_ref') THEN
    CREATE UNIQUE INDEX uq_ledger_payment_ref
        ON ledger_entries (reference_id)
        WHERE kind = 'payment' AND reference_id IS NOT NULL;
  END IF;
END $$`},

		// Ledger browsing is always per subject, newest first.
		{"ledger subject index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ledger_customer_created') THEN
    CREATE INDEX idx_ledger_customer_created
        ON ledger_entries (customer_id, created_at DESC)
        WHERE customer_id IS NOT NULL;
  END IF;
END $$`},
		{"ledger product index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ledger_product_created') THEN
    CREATE INDEX idx_ledger_product_created
        ON ledger_entries (product_id, created_at DESC)
        WHERE product_id IS NOT NULL;
  END IF;
END $$`},

		// One synthesized walk-in account.
		{"single walk-in customer", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_customer_walk_in') THEN
    CREATE UNIQUE INDEX uq_customer_walk_in
        ON customer_accounts (walk_in)
        WHERE walk_in = true;
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
