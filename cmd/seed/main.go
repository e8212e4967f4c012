// Command seed loads reference data and demo stores from a YAML fixture.
// Rows are matched by natural key, so running it twice is harmless.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"getir-be/internal/config"
	"getir-be/internal/db"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/utils"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Admins       []Admin       `yaml:"admins"`
	StoreTypes   []StoreType   `yaml:"store_types"`
	Categories   []Category    `yaml:"categories"`
	Governorates []Governorate `yaml:"governorates"`
	Stores       []Store       `yaml:"stores"`
}

type Admin struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	Note  string `yaml:"note"`
}

type StoreType struct {
	NameAr    string `yaml:"name_ar"`
	NameEn    string `yaml:"name_en"`
	Icon      string `yaml:"icon"`
	SortOrder int    `yaml:"sort_order"`
}

type Category struct {
	NameAr        string `yaml:"name_ar"`
	NameEn        string `yaml:"name_en"`
	DescriptionEn string `yaml:"description_en"`
	Icon          string `yaml:"icon"`
	SortOrder     int    `yaml:"sort_order"`
}

type Governorate struct {
	NameAr string `yaml:"name_ar"`
	NameEn string `yaml:"name_en"`
	Cities []City `yaml:"cities"`
}

type City struct {
	NameAr string   `yaml:"name_ar"`
	NameEn string   `yaml:"name_en"`
	Areas  []string `yaml:"areas"`
}

type Store struct {
	Name       string    `yaml:"name"`
	Code       string    `yaml:"code"`
	StoreType  string    `yaml:"store_type"`
	Address    string    `yaml:"address"`
	OwnerName  string    `yaml:"owner_name"`
	OwnerPhone string    `yaml:"owner_phone"`
	Products   []Product `yaml:"products"`
}

type Product struct {
	Name     string          `yaml:"name"`
	Category string          `yaml:"category"`
	Price    decimal.Decimal `yaml:"price"`
	Unit     string          `yaml:"unit"`
	Stock    int             `yaml:"stock"`
	Featured bool            `yaml:"featured"`
}

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()
	log := logger.L()

	file := flag.String("file", "./cmd/seed/seed.yaml", "fixture file")
	flag.Parse()

	fx, err := loadFixture(*file)
	if err != nil {
		log.Fatal("failed to load fixture", zap.Error(err))
	}

	database, err := db.NewDatabase(cfg)
	if err != nil {
		log.Fatal("failed to open db", zap.Error(err))
	}
	defer database.Close()

	if err := seed(context.Background(), database, fx); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	log.Info("seed complete",
		zap.Int("categories", len(fx.Categories)),
		zap.Int("stores", len(fx.Stores)),
	)
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFixture(data)
}

func parseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, s := range fx.Stores {
		if s.Code == "" {
			return nil, fmt.Errorf("store %d (%s): code is required", i, s.Name)
		}
		for _, p := range s.Products {
			if p.Price.IsNegative() {
				return nil, fmt.Errorf("store %s: product %s has a negative price", s.Code, p.Name)
			}
		}
	}
	return &fx, nil
}

// seed writes the whole fixture in one transaction.
func seed(ctx context.Context, database *sql.DB, fx *Fixture) error {
	return db.WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, a := range fx.Admins {
			phone := utils.NormalizePhone(a.Phone)
			if _, err := upsertUser(ctx, tx, a.Name, phone, role.Admin); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO admin_access (phone, note) VALUES ($1, $2)
				ON CONFLICT (phone) DO NOTHING`, phone, a.Note); err != nil {
				return fmt.Errorf("admin access %s: %w", phone, err)
			}
		}

		typeIDs := make(map[string]int64, len(fx.StoreTypes))
		for _, t := range fx.StoreTypes {
			id, err := findOrCreate(ctx, tx,
				`SELECT id FROM store_types WHERE name_en = $1`, []any{t.NameEn},
				`INSERT INTO store_types (name_ar, name_en, icon, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
				[]any{t.NameAr, t.NameEn, t.Icon, t.SortOrder})
			if err != nil {
				return fmt.Errorf("store type %s: %w", t.NameEn, err)
			}
			typeIDs[t.NameEn] = id
		}

		categoryIDs := make(map[string]int64, len(fx.Categories))
		for _, c := range fx.Categories {
			id, err := findOrCreate(ctx, tx,
				`SELECT id FROM categories WHERE name_en = $1`, []any{c.NameEn},
				`INSERT INTO categories (name_ar, name_en, description_en, icon, sort_order) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				[]any{c.NameAr, c.NameEn, c.DescriptionEn, c.Icon, c.SortOrder})
			if err != nil {
				return fmt.Errorf("category %s: %w", c.NameEn, err)
			}
			categoryIDs[c.NameEn] = id
		}

		if err := seedGeography(ctx, tx, fx.Governorates); err != nil {
			return err
		}

		for _, s := range fx.Stores {
			if err := seedStore(ctx, tx, s, typeIDs, categoryIDs); err != nil {
				return fmt.Errorf("store %s: %w", s.Code, err)
			}
		}
		return nil
	})
}

func seedGeography(ctx context.Context, tx *sql.Tx, govs []Governorate) error {
	for i, g := range govs {
		govID, err := findOrCreate(ctx, tx,
			`SELECT id FROM governorates WHERE name_en = $1`, []any{g.NameEn},
			`INSERT INTO governorates (name_ar, name_en, sort_order) VALUES ($1, $2, $3) RETURNING id`,
			[]any{g.NameAr, g.NameEn, i})
		if err != nil {
			return fmt.Errorf("governorate %s: %w", g.NameEn, err)
		}

		for _, c := range g.Cities {
			cityID, err := findOrCreate(ctx, tx,
				`SELECT id FROM cities WHERE governorate_id = $1 AND name_en = $2`, []any{govID, c.NameEn},
				`INSERT INTO cities (governorate_id, name_ar, name_en) VALUES ($1, $2, $3) RETURNING id`,
				[]any{govID, c.NameAr, c.NameEn})
			if err != nil {
				return fmt.Errorf("city %s: %w", c.NameEn, err)
			}

			for _, area := range c.Areas {
				if _, err := findOrCreate(ctx, tx,
					`SELECT id FROM areas WHERE city_id = $1 AND name_en = $2`, []any{cityID, area},
					`INSERT INTO areas (city_id, name_ar, name_en) VALUES ($1, $2, $2) RETURNING id`,
					[]any{cityID, area}); err != nil {
					return fmt.Errorf("area %s: %w", area, err)
				}
			}
		}
	}
	return nil
}

func seedStore(ctx context.Context, tx *sql.Tx, s Store, typeIDs, categoryIDs map[string]int64) error {
	ownerID, err := upsertUser(ctx, tx, s.OwnerName, utils.NormalizePhone(s.OwnerPhone), role.StoreOwner)
	if err != nil {
		return err
	}

	var typeID *int64
	if id, ok := typeIDs[s.StoreType]; ok {
		typeID = &id
	}

	var storeID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO stores (owner_id, store_type_id, name, code, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		ownerID, typeID, s.Name, s.Code, s.Address,
	).Scan(&storeID)
	if err != nil {
		return err
	}

	for _, p := range s.Products {
		categoryID, ok := categoryIDs[p.Category]
		if !ok {
			return fmt.Errorf("product %s: unknown category %q", p.Name, p.Category)
		}
		unit := p.Unit
		if unit == "" {
			unit = "piece"
		}
		if _, err := findOrCreate(ctx, tx,
			`SELECT id FROM products WHERE store_id = $1 AND name = $2`, []any{storeID, p.Name},
			`INSERT INTO products (category_id, store_id, name, price, unit, stock_quantity, is_featured)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			[]any{categoryID, storeID, p.Name, p.Price, unit, p.Stock, p.Featured}); err != nil {
			return fmt.Errorf("product %s: %w", p.Name, err)
		}
	}
	return nil
}

// upsertUser creates a verified user or moves an existing phone to userType.
// Admins keep their type.
func upsertUser(ctx context.Context, tx *sql.Tx, name, phone string, userType role.Role) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO users (name, phone, user_type, is_verified)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT ON CONSTRAINT users_phone_key
		DO UPDATE SET
			user_type = CASE WHEN users.user_type = 'admin' THEN users.user_type ELSE EXCLUDED.user_type END,
			updated_at = NOW()
		RETURNING id`,
		name, phone, userType.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("user %s: %w", phone, err)
	}
	return id, nil
}

// findOrCreate returns the id matched by the lookup query, inserting the row
// when there is none.
func findOrCreate(ctx context.Context, tx *sql.Tx, lookup string, lookupArgs []any, insert string, insertArgs []any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, lookup, lookupArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	err = tx.QueryRowContext(ctx, insert, insertArgs...).Scan(&id)
	return id, err
}
