package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courier-market-service/internal/domain"
)

// Postgres-backed implementation of the BidRepository port.
type PostgresBidRepository struct{ DB *sql.DB }

func NewPostgresBidRepository(db *sql.DB) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `
	id,
	package_id,
	courier_id,
	price_cents,
	pickup_at,
	status,
	created_at,
	updated_at`

func (r *PostgresBidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	query := `
	INSERT INTO bids (` + bidColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.DB.ExecContext(ctx, query,
		bid.ID,
		bid.PackageID,
		bid.CourierID,
		bid.PriceCents,
		bid.PickupAt,
		string(bid.Status),
		bid.CreatedAt,
		bid.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create bid %s: %w", bid.ID, err)
	}
	return nil
}

func (r *PostgresBidRepository) Get(ctx context.Context, id string) (*domain.Bid, error) {
	query := `
	SELECT ` + bidColumns + `
	FROM bids
	WHERE id = $1;
	`
	bid, err := scanBid(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get bid %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get bid %s: %w", id, err)
	}
	return bid, nil
}

func (r *PostgresBidRepository) Update(ctx context.Context, bid *domain.Bid) error {
	query := `
	UPDATE bids SET
		status = $2,
		updated_at = $3
	WHERE id = $1;
	`
	res, err := r.DB.ExecContext(ctx, query,
		bid.ID,
		string(bid.Status),
		bid.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update bid %s: %w", bid.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bid %s: rows affected: %w", bid.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update bid %s: %w", bid.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresBidRepository) ListByPackage(ctx context.Context, packageID string) ([]*domain.Bid, error) {
	query := `
	SELECT ` + bidColumns + `
	FROM bids
	WHERE package_id = $1
	ORDER BY created_at DESC, id DESC;
	`
	rows, err := r.DB.QueryContext(ctx, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("list bids for package %s: query: %w", packageID, err)
	}
	defer rows.Close()

	bids := make([]*domain.Bid, 0, 8)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("list bids for package %s: scan row: %w", packageID, err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bids for package %s: row iteration: %w", packageID, err)
	}
	return bids, nil
}

func (r *PostgresBidRepository) HasActiveBid(ctx context.Context, packageID, courierID string) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1 FROM bids
		WHERE package_id = $1 AND courier_id = $2 AND status IN ('PENDING', 'SELECTED')
	);
	`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, packageID, courierID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active bid: %w", err)
	}
	return exists, nil
}

func scanBid(row rowScanner) (*domain.Bid, error) {
	var (
		bid    domain.Bid
		status string
	)
	err := row.Scan(
		&bid.ID,
		&bid.PackageID,
		&bid.CourierID,
		&bid.PriceCents,
		&bid.PickupAt,
		&status,
		&bid.CreatedAt,
		&bid.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	bid.Status = domain.BidStatus(status)
	return &bid, nil
}
