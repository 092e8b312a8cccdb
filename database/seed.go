package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Seed inserts a small starter catalog when the products table is empty, so a
// fresh environment is browsable without an admin backend.
func Seed(db *sql.DB, logger *zap.Logger) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	categories := []struct {
		name string
		slug string
	}{
		{"Celulares", "celulares"},
		{"Accesorios", "accesorios"},
		{"Audio", "audio"},
	}

	categoryIDs := make(map[string]int, len(categories))
	for _, c := range categories {
		var id int
		err := db.QueryRow(
			"INSERT INTO categories (name, slug) VALUES ($1, $2) ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name RETURNING id",
			c.name, c.slug,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.slug, err)
		}
		categoryIDs[c.slug] = id
	}

	products := []struct {
		category string
		name     string
		slug     string
		price    string
		stock    int
		tags     string
	}{
		{"celulares", "Galaxy A25 128GB", "galaxy-a25-128gb", "229.90", 15, "android,5g,128gb"},
		{"celulares", "Redmi Note 13", "redmi-note-13", "199.00", 20, "android,amoled"},
		{"accesorios", "Cargador USB-C 25W", "cargador-usb-c-25w", "14.50", 60, "cargador,usb-c"},
		{"accesorios", "Funda transparente", "funda-transparente", "6.90", 100, "funda"},
		{"audio", "Audifonos BT TWS", "audifonos-bt-tws", "24.90", 35, "bluetooth,tws"},
	}

	for _, p := range products {
		_, err := db.Exec(
			"INSERT INTO products (category_id, name, slug, price, stock, tags) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (slug) DO NOTHING",
			categoryIDs[p.category], p.name, p.slug, p.price, p.stock, p.tags,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.slug, err)
		}
	}

	logger.Info("Seeded starter catalog",
		zap.Int("categories", len(categories)),
		zap.Int("products", len(products)),
	)
	return nil
}
