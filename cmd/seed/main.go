// Package main provides a CLI tool for bootstrapping the database
// schema and seeding it with demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain/inventory"
	"yiyostore/internal/infrastructure/storage/postgres"
	"yiyostore/pkg/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cat_customer (
		id            UUID PRIMARY KEY,
		deletion_mark BOOLEAN NOT NULL DEFAULT FALSE,
		version       INTEGER NOT NULL DEFAULT 1,
		code          TEXT NOT NULL,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		note          TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cat_customer_code
		ON cat_customer (code) WHERE deletion_mark = FALSE`,

	`CREATE TABLE IF NOT EXISTS cat_product (
		id            UUID PRIMARY KEY,
		deletion_mark BOOLEAN NOT NULL DEFAULT FALSE,
		version       INTEGER NOT NULL DEFAULT 1,
		code          TEXT NOT NULL,
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL,
		price         NUMERIC(12,2) NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cat_product_code
		ON cat_product (code) WHERE deletion_mark = FALSE`,

	`CREATE TABLE IF NOT EXISTS inv_lot (
		id            UUID PRIMARY KEY,
		deletion_mark BOOLEAN NOT NULL DEFAULT FALSE,
		version       INTEGER NOT NULL DEFAULT 1,
		product_id    UUID NOT NULL REFERENCES cat_product (id),
		unit_cost     NUMERIC(12,2) NOT NULL,
		remaining     BIGINT NOT NULL CHECK (remaining >= 0),
		acquired_at   TIMESTAMPTZ NOT NULL,
		state         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_inv_lot_fifo
		ON inv_lot (product_id, acquired_at, id) WHERE deletion_mark = FALSE`,

	`CREATE TABLE IF NOT EXISTS doc_order (
		id             UUID PRIMARY KEY,
		deletion_mark  BOOLEAN NOT NULL DEFAULT FALSE,
		version        INTEGER NOT NULL DEFAULT 1,
		number         TEXT NOT NULL,
		date           TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		note           TEXT NOT NULL DEFAULT '',
		customer_id    UUID NOT NULL REFERENCES cat_customer (id),
		payment_method TEXT NOT NULL,
		channel        TEXT NOT NULL,
		status         TEXT NOT NULL,
		restocked      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_doc_order_number ON doc_order (number)`,

	`CREATE TABLE IF NOT EXISTS doc_order_line (
		line_id    UUID PRIMARY KEY,
		line_no    INTEGER NOT NULL,
		order_id   UUID NOT NULL REFERENCES doc_order (id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES cat_product (id),
		lot_id     UUID NOT NULL REFERENCES inv_lot (id),
		quantity   BIGINT NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_doc_order_line_order ON doc_order_line (order_id)`,

	`CREATE TABLE IF NOT EXISTS sys_sequences (
		key         TEXT PRIMARY KEY,
		current_val BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sys_audit (
		id                 UUID PRIMARY KEY,
		entity_type        TEXT NOT NULL,
		entity_id          UUID NOT NULL,
		action             TEXT NOT NULL,
		changes            BYTEA,
		changes_compressed BOOLEAN NOT NULL DEFAULT FALSE,
		compression_algo   TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_sys_audit_entity
		ON sys_audit (entity_type, entity_id, created_at)`,
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := applySchema(ctx, pool); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}
	log.Info("schema is up to date")

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func applySchema(ctx context.Context, pool *postgres.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	// 1. Customers
	customers := []struct {
		code, name, email, phone string
	}{
		{"CUS-00001", "Mariana López", "mariana.lopez@example.com", "+52 55 1111 2222"},
		{"CUS-00002", "Carlos Hernández", "carlos.hdz@example.com", "+52 55 3333 4444"},
		{"CUS-00003", "Lucía Ramírez", "lucia.ramirez@example.com", ""},
	}

	customerIDs := make([]id.ID, 0, len(customers))
	for _, c := range customers {
		cid := id.New()
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_customer (id, code, name, email, phone, version, deletion_mark)
			VALUES ($1, $2, $3, $4, $5, 1, FALSE)
			ON CONFLICT DO NOTHING
		`, cid, c.code, c.name, c.email, c.phone)
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.code, err)
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx,
				`SELECT id FROM cat_customer WHERE code = $1 AND deletion_mark = FALSE`,
				c.code,
			).Scan(&cid); err != nil {
				return fmt.Errorf("fetch existing customer %s: %w", c.code, err)
			}
		}
		customerIDs = append(customerIDs, cid)
	}
	log.Infow("customers seeded", "count", len(customerIDs))

	// 2. Products
	products := []struct {
		code, name, category string
		price                string
	}{
		{"PRD-00001", "iPhone 13 128GB", "phone", "9999.00"},
		{"PRD-00002", "Galaxy Tab A8", "tablet", "4499.00"},
		{"PRD-00003", "ThinkPad T14 Gen 3", "laptop", "18999.00"},
		{"PRD-00004", "Cargador USB-C 20W", "accessory", "349.00"},
	}

	productIDs := make([]id.ID, 0, len(products))
	for _, p := range products {
		pid := id.New()
		price, err := types.NewMoneyFromString(p.price)
		if err != nil {
			return fmt.Errorf("parse price for %s: %w", p.code, err)
		}
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_product (id, code, name, category, price, version, deletion_mark)
			VALUES ($1, $2, $3, $4, $5, 1, FALSE)
			ON CONFLICT DO NOTHING
		`, pid, p.code, p.name, p.category, price)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.code, err)
		}
		if tag.RowsAffected() == 0 {
			if err := pool.QueryRow(ctx,
				`SELECT id FROM cat_product WHERE code = $1 AND deletion_mark = FALSE`,
				p.code,
			).Scan(&pid); err != nil {
				return fmt.Errorf("fetch existing product %s: %w", p.code, err)
			}
		}
		productIDs = append(productIDs, pid)
	}
	log.Infow("products seeded", "count", len(productIDs))

	// 3. Lots, bulk-inserted over the COPY protocol.
	txManager := postgres.NewTxManager(pool)
	inserter := postgres.NewBatchInserter(txManager)

	type lotSeed struct {
		product   int
		cost      string
		remaining int64
		daysAgo   int
		state     inventory.LotState
	}

	lots := []lotSeed{
		{0, "8200.00", 5, 45, inventory.LotStateNew},
		{0, "8450.00", 10, 20, inventory.LotStateNew},
		{0, "7100.00", 2, 30, inventory.LotStateRefurbished},
		{1, "3600.00", 8, 60, inventory.LotStateNew},
		{1, "3550.00", 4, 10, inventory.LotStateNew},
		{2, "15800.00", 3, 15, inventory.LotStateNew},
		{2, "14200.00", 1, 90, inventory.LotStateUsed},
		{3, "180.00", 50, 25, inventory.LotStateNew},
	}

	columns := []string{
		"id", "deletion_mark", "version",
		"product_id", "unit_cost", "remaining", "acquired_at", "state",
	}

	err := txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		rows := make(chan []any)
		go func() {
			defer close(rows)
			now := time.Now()
			for _, l := range lots {
				cost, err := types.NewMoneyFromString(l.cost)
				if err != nil {
					continue
				}
				rows <- []any{
					id.New(), false, 1,
					productIDs[l.product], cost, l.remaining,
					now.AddDate(0, 0, -l.daysAgo), string(l.state),
				}
			}
		}()

		inserted, err := inserter.CopyFromRows(txCtx, "inv_lot", columns, rows)
		if err != nil {
			return fmt.Errorf("copy lots: %w", err)
		}
		log.Infow("lots seeded", "count", inserted)
		return nil
	})
	if err != nil {
		return err
	}

	return nil
}
