package vehicles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/autosales/internal/platform/db"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Repository persists vehicles. Status is only written through
// CompareAndSwapStatus.
type Repository interface {
	Get(ctx context.Context, id string) (*Vehicle, error)
	List(ctx context.Context, req ListVehiclesRequest) ([]Vehicle, int, error)
	Create(ctx context.Context, v Vehicle) error
	Update(ctx context.Context, v Vehicle) error
	CompareAndSwapStatus(ctx context.Context, id string, expected, next Status, at time.Time) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const vehicleColumns = `id, brand, model, year, color, price::float8, vin, status, created_at, updated_at`

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	var status string
	if err := row.Scan(&v.ID, &v.Brand, &v.Model, &v.Year, &v.Color, &v.Price, &v.VIN, &status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Status = Status(status)
	return &v, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vehicles: get: %w", err)
	}
	return v, nil
}

func (r *repository) List(ctx context.Context, req ListVehiclesRequest) ([]Vehicle, int, error) {
	var conditions []string
	var args []any
	if req.Status != nil {
		args = append(args, string(*req.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.Brand != "" {
		args = append(args, req.Brand)
		conditions = append(conditions, fmt.Sprintf("brand ILIKE $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM vehicles "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("vehicles: count: %w", err)
	}

	page, perPage := shared.NormalizePage(req.Page, req.PerPage)
	args = append(args, perPage, shared.Offset(page, perPage))
	query := fmt.Sprintf(`SELECT %s FROM vehicles %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		vehicleColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("vehicles: list: %w", err)
	}
	defer rows.Close()

	out := make([]Vehicle, 0, perPage)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("vehicles: scan: %w", err)
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, v Vehicle) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO vehicles (id, brand, model, year, color, price, vin, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.Brand, v.Model, v.Year, v.Color, v.Price, v.VIN, string(v.Status), v.CreatedAt, v.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: vin %s", shared.ErrDuplicate, v.VIN)
	}
	if err != nil {
		return fmt.Errorf("vehicles: create: %w", err)
	}
	return nil
}

// Update writes the descriptive fields of v. Status is left untouched.
func (r *repository) Update(ctx context.Context, v Vehicle) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE vehicles SET brand = $2, model = $3, year = $4, color = $5, price = $6, updated_at = $7
		WHERE id = $1`,
		v.ID, v.Brand, v.Model, v.Year, v.Color, v.Price, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("vehicles: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CompareAndSwapStatus(ctx context.Context, id string, expected, next Status, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE vehicles SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(expected), string(next), at)
	if err != nil {
		return fmt.Errorf("vehicles: swap status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vehicles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("vehicles: swap status: %w", err)
	}
	if !exists {
		return shared.ErrNotFound
	}
	return shared.ErrStatusConflict
}
