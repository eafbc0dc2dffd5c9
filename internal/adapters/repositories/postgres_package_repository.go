package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courier-market-service/internal/domain"
)

// Postgres-backed implementation of the PackageRepository port.
type PostgresPackageRepository struct{ DB *sql.DB }

func NewPostgresPackageRepository(db *sql.DB) *PostgresPackageRepository {
	return &PostgresPackageRepository{DB: db}
}

const packageColumns = `
	id,
	sender_id,
	origin_lon,
	origin_lat,
	origin_address,
	dest_lon,
	dest_lat,
	dest_address,
	size_class,
	weight_kg,
	price_offer_cents,
	status,
	selected_bid_id,
	bidding_deadline,
	extensions_used,
	created_at,
	updated_at`

func (r *PostgresPackageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	query := `
	INSERT INTO packages (` + packageColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.DB.ExecContext(ctx, query,
		pkg.ID,
		pkg.SenderID,
		pkg.Origin.Lon,
		pkg.Origin.Lat,
		pkg.OriginAddress,
		pkg.Destination.Lon,
		pkg.Destination.Lat,
		pkg.DestinationAddress,
		string(pkg.Size),
		pkg.WeightKg,
		pkg.PriceOfferCents,
		string(pkg.Status),
		pkg.SelectedBidID,
		pkg.BiddingDeadline,
		pkg.ExtensionsUsed,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create package %s: %w", pkg.ID, err)
	}
	return nil
}

func (r *PostgresPackageRepository) Get(ctx context.Context, id string) (*domain.Package, error) {
	query := `
	SELECT ` + packageColumns + `
	FROM packages
	WHERE id = $1;
	`
	pkg, err := scanPackage(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get package %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get package %s: %w", id, err)
	}
	return pkg, nil
}

// Update persists the fields the services mutate. Origin, destination and
// sizing are immutable after creation.
func (r *PostgresPackageRepository) Update(ctx context.Context, pkg *domain.Package) error {
	query := `
	UPDATE packages SET
		status = $2,
		selected_bid_id = $3,
		bidding_deadline = $4,
		extensions_used = $5,
		updated_at = $6
	WHERE id = $1;
	`
	res, err := r.DB.ExecContext(ctx, query,
		pkg.ID,
		string(pkg.Status),
		pkg.SelectedBidID,
		pkg.BiddingDeadline,
		pkg.ExtensionsUsed,
		pkg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update package %s: %w", pkg.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update package %s: rows affected: %w", pkg.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update package %s: %w", pkg.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresPackageRepository) ListByStatus(ctx context.Context, status domain.PackageStatus) ([]*domain.Package, error) {
	query := `
	SELECT ` + packageColumns + `
	FROM packages
	WHERE status = $1
	ORDER BY created_at, id;
	`
	return r.queryPackages(ctx, "list packages by status", query, string(status))
}

func (r *PostgresPackageRepository) ListOverdueOpen(ctx context.Context, now time.Time) ([]*domain.Package, error) {
	query := `
	SELECT ` + packageColumns + `
	FROM packages
	WHERE status = $1 AND bidding_deadline IS NOT NULL AND bidding_deadline <= $2
	ORDER BY bidding_deadline, id;
	`
	return r.queryPackages(ctx, "list overdue open packages", query, string(domain.StatusOpenForBids), now)
}

func (r *PostgresPackageRepository) ListOpenForBidding(ctx context.Context, now time.Time) ([]*domain.Package, error) {
	query := `
	SELECT ` + packageColumns + `
	FROM packages
	WHERE status = $1 AND bidding_deadline > $2
	ORDER BY created_at, id;
	`
	return r.queryPackages(ctx, "list open packages", query, string(domain.StatusOpenForBids), now)
}

func (r *PostgresPackageRepository) queryPackages(ctx context.Context, op, query string, args ...any) ([]*domain.Package, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	packages := make([]*domain.Package, 0, 16)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}
	return packages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*domain.Package, error) {
	var (
		pkg      domain.Package
		size     string
		status   string
		selected sql.NullString
		deadline sql.NullTime
	)
	err := row.Scan(
		&pkg.ID,
		&pkg.SenderID,
		&pkg.Origin.Lon,
		&pkg.Origin.Lat,
		&pkg.OriginAddress,
		&pkg.Destination.Lon,
		&pkg.Destination.Lat,
		&pkg.DestinationAddress,
		&size,
		&pkg.WeightKg,
		&pkg.PriceOfferCents,
		&status,
		&selected,
		&deadline,
		&pkg.ExtensionsUsed,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pkg.Size = domain.SizeClass(size)
	pkg.Status = domain.PackageStatus(status)
	if selected.Valid {
		pkg.SelectedBidID = &selected.String
	}
	if deadline.Valid {
		pkg.BiddingDeadline = &deadline.Time
	}
	return &pkg, nil
}
