package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"courier-market-service/internal/domain"
)

// Initialize the postgres schema for packages, bids, and routes.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPackagesQuery := `
	CREATE TABLE IF NOT EXISTS packages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL,
		origin_lon DOUBLE PRECISION NOT NULL,
		origin_lat DOUBLE PRECISION NOT NULL,
		origin_address TEXT NOT NULL DEFAULT '',
		dest_lon DOUBLE PRECISION NOT NULL,
		dest_lat DOUBLE PRECISION NOT NULL,
		dest_address TEXT NOT NULL DEFAULT '',
		size_class TEXT NOT NULL,
		weight_kg DOUBLE PRECISION NOT NULL,
		price_offer_cents BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		selected_bid_id TEXT,
		bidding_deadline TIMESTAMPTZ,
		extensions_used INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createBidsQuery := `
	CREATE TABLE IF NOT EXISTS bids (
		id TEXT PRIMARY KEY,
		package_id TEXT NOT NULL REFERENCES packages(id),
		courier_id TEXT NOT NULL,
		price_cents BIGINT NOT NULL,
		pickup_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		courier_id TEXT NOT NULL,
		start_lon DOUBLE PRECISION NOT NULL,
		start_lat DOUBLE PRECISION NOT NULL,
		end_lon DOUBLE PRECISION NOT NULL,
		end_lat DOUBLE PRECISION NOT NULL,
		max_deviation_km DOUBLE PRECISION NOT NULL,
		depart_at TIMESTAMPTZ NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	);
	`

	// the sweep scans open packages by deadline on every tick
	createDeadlineIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_packages_status_deadline
	ON packages(status, bidding_deadline);
	`

	createBidsPackageIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_bids_package_created
	ON bids(package_id, created_at DESC);
	`

	createRoutesCourierIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_routes_courier_active
	ON routes(courier_id, active);
	`

	statements := []string{
		createPackagesQuery,
		createBidsQuery,
		createRoutesQuery,
		createDeadlineIndexQuery,
		createBidsPackageIndexQuery,
		createRoutesCourierIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type coordinateSeed struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type packageSeed struct {
	ID              string         `json:"id"`
	SenderID        string         `json:"sender_id"`
	Origin          coordinateSeed `json:"origin"`
	OriginAddress   string         `json:"origin_address"`
	Destination     coordinateSeed `json:"destination"`
	DestAddress     string         `json:"dest_address"`
	Size            string         `json:"size"`
	WeightKg        float64        `json:"weight_kg"`
	PriceOfferCents int64          `json:"price_offer_cents"`
}

type routeSeed struct {
	ID             string         `json:"id"`
	CourierID      string         `json:"courier_id"`
	Start          coordinateSeed `json:"start"`
	End            coordinateSeed `json:"end"`
	MaxDeviationKm float64        `json:"max_deviation_km"`
	DepartAt       time.Time      `json:"depart_at"`
}

type seedFile struct {
	Packages []packageSeed `json:"packages"`
	Routes   []routeSeed   `json:"routes"`
}

// Populate the database with demo packages and routes from a JSON file.
// Seeded packages open for bids immediately with a fresh 24 hour deadline.
// Existing rows are left untouched so reseeding never clobbers live state.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed marketplace: read %q: %w", jsonPath, err)
	}

	var data seedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("seed marketplace: parse json: %w", err)
	}

	now := time.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed marketplace: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pkgQuery := `
	INSERT INTO packages (
		id, sender_id, origin_lon, origin_lat, origin_address,
		dest_lon, dest_lat, dest_address, size_class, weight_kg,
		price_offer_cents, status, bidding_deadline,
		extensions_used, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14, $14)
	ON CONFLICT (id) DO NOTHING;
	`
	pkgStmt, err := tx.Prepare(pkgQuery)
	if err != nil {
		return fmt.Errorf("seed marketplace: prepare package insert: %w", err)
	}
	defer pkgStmt.Close()

	for i, p := range data.Packages {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.SenderID == "" {
			return fmt.Errorf("seed marketplace: package at index %d: sender_id cannot be empty", i+1)
		}
		size, err := domain.ParseSizeClass(p.Size)
		if err != nil {
			return fmt.Errorf("seed marketplace: package at index %d: %w", i+1, err)
		}
		if p.WeightKg <= 0 {
			return fmt.Errorf("seed marketplace: package at index %d: weight_kg must be positive", i+1)
		}
		if p.PriceOfferCents < 0 {
			return fmt.Errorf("seed marketplace: package at index %d: price cannot be negative", i+1)
		}

		_, err = pkgStmt.Exec(
			p.ID, p.SenderID,
			p.Origin.Lon, p.Origin.Lat, p.OriginAddress,
			p.Destination.Lon, p.Destination.Lat, p.DestAddress,
			string(size), p.WeightKg, p.PriceOfferCents,
			string(domain.StatusOpenForBids), now.Add(24*time.Hour),
			now,
		)
		if err != nil {
			return fmt.Errorf("seed marketplace: insert package %s: %w", p.ID, err)
		}
	}

	routeQuery := `
	INSERT INTO routes (
		id, courier_id, start_lon, start_lat, end_lon, end_lat,
		max_deviation_km, depart_at, active, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
	ON CONFLICT (id) DO NOTHING;
	`
	routeStmt, err := tx.Prepare(routeQuery)
	if err != nil {
		return fmt.Errorf("seed marketplace: prepare route insert: %w", err)
	}
	defer routeStmt.Close()

	for i, r := range data.Routes {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.CourierID == "" {
			return fmt.Errorf("seed marketplace: route at index %d: courier_id cannot be empty", i+1)
		}
		if r.MaxDeviationKm <= 0 {
			return fmt.Errorf("seed marketplace: route at index %d: max_deviation_km must be positive", i+1)
		}
		departAt := r.DepartAt
		if departAt.IsZero() {
			departAt = now.Add(6 * time.Hour)
		}

		_, err = routeStmt.Exec(
			r.ID, r.CourierID,
			r.Start.Lon, r.Start.Lat,
			r.End.Lon, r.End.Lat,
			r.MaxDeviationKm, departAt, now,
		)
		if err != nil {
			return fmt.Errorf("seed marketplace: insert route %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed marketplace: commit tx: %w", err)
	}

	return nil
}
