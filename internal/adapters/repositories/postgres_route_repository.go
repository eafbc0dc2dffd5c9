package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courier-market-service/internal/domain"
)

// Postgres-backed implementation of the RouteRepository port.
type PostgresRouteRepository struct{ DB *sql.DB }

func NewPostgresRouteRepository(db *sql.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{DB: db}
}

const routeColumns = `
	id,
	courier_id,
	start_lon,
	start_lat,
	end_lon,
	end_lat,
	max_deviation_km,
	depart_at,
	active,
	created_at`

// CreateActive inserts the route and retires the courier's previous active
// routes inside one transaction, so a courier never holds two at once.
func (r *PostgresRouteRepository) CreateActive(ctx context.Context, route *domain.Route) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create route %s: begin tx: %w", route.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	deactivate := `
	UPDATE routes SET active = FALSE
	WHERE courier_id = $1 AND active;
	`
	if _, err := tx.ExecContext(ctx, deactivate, route.CourierID); err != nil {
		return fmt.Errorf("create route %s: deactivate previous: %w", route.ID, err)
	}

	insert := `
	INSERT INTO routes (` + routeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9);
	`
	_, err = tx.ExecContext(ctx, insert,
		route.ID,
		route.CourierID,
		route.Start.Lon,
		route.Start.Lat,
		route.End.Lon,
		route.End.Lat,
		route.MaxDeviationKm,
		route.DepartAt,
		route.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create route %s: insert: %w", route.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create route %s: commit tx: %w", route.ID, err)
	}
	return nil
}

func (r *PostgresRouteRepository) Get(ctx context.Context, id string) (*domain.Route, error) {
	query := `
	SELECT ` + routeColumns + `
	FROM routes
	WHERE id = $1;
	`
	route, err := scanRoute(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %s: %w", id, err)
	}
	return route, nil
}

func (r *PostgresRouteRepository) Update(ctx context.Context, route *domain.Route) error {
	query := `
	UPDATE routes SET
		max_deviation_km = $2,
		depart_at = $3,
		active = $4
	WHERE id = $1;
	`
	res, err := r.DB.ExecContext(ctx, query,
		route.ID,
		route.MaxDeviationKm,
		route.DepartAt,
		route.Active,
	)
	if err != nil {
		return fmt.Errorf("update route %s: %w", route.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update route %s: rows affected: %w", route.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update route %s: %w", route.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresRouteRepository) ListActiveByCourier(ctx context.Context, courierID string) ([]*domain.Route, error) {
	query := `
	SELECT ` + routeColumns + `
	FROM routes
	WHERE courier_id = $1 AND active
	ORDER BY created_at DESC, id DESC;
	`
	rows, err := r.DB.QueryContext(ctx, query, courierID)
	if err != nil {
		return nil, fmt.Errorf("list routes for courier %s: query: %w", courierID, err)
	}
	defer rows.Close()

	routes := make([]*domain.Route, 0, 4)
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes for courier %s: scan row: %w", courierID, err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes for courier %s: row iteration: %w", courierID, err)
	}
	return routes, nil
}

func scanRoute(row rowScanner) (*domain.Route, error) {
	var route domain.Route
	err := row.Scan(
		&route.ID,
		&route.CourierID,
		&route.Start.Lon,
		&route.Start.Lat,
		&route.End.Lon,
		&route.End.Lat,
		&route.MaxDeviationKm,
		&route.DepartAt,
		&route.Active,
		&route.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &route, nil
}
