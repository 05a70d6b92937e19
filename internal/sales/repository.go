package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/autosales/internal/lifecycle"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Repository persists sales. Status is only written through
// CompareAndSwapStatus.
type Repository interface {
	Get(ctx context.Context, id string) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
	Create(ctx context.Context, sale Sale) error
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]Sale, error)
	HasNewerPending(ctx context.Context, vehicleID, saleID string, since time.Time) (bool, error)
	CompareAndSwapStatus(ctx context.Context, id string, expected, next Status, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const saleColumns = `id, vehicle_id, customer_id, seller_id, price::float8, status, created_at, updated_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	var status string
	if err := row.Scan(&s.ID, &s.VehicleID, &s.CustomerID, &s.SellerID, &s.Price, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = Status(status)
	return &s, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sales: get: %w", err)
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	var conditions []string
	var args []any
	if req.Status != nil {
		args = append(args, string(*req.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.CustomerID != "" {
		args = append(args, req.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if req.VehicleID != "" {
		args = append(args, req.VehicleID)
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count: %w", err)
	}

	page, perPage := shared.NormalizePage(req.Page, req.PerPage)
	args = append(args, perPage, shared.Offset(page, perPage))
	query := fmt.Sprintf(`SELECT %s FROM sales %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		saleColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list: %w", err)
	}
	defer rows.Close()

	out := make([]Sale, 0, perPage)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sales: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, s Sale) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sales (id, vehicle_id, customer_id, seller_id, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.VehicleID, s.CustomerID, s.SellerID, s.Price, string(s.Status), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sales: create: %w", err)
	}
	return nil
}

// ListPendingBefore returns up to limit PENDING sales created before before,
// oldest first.
func (r *repository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at, id LIMIT $3`, string(lifecycle.SalePending), before, limit)
	if err != nil {
		return nil, fmt.Errorf("sales: list pending: %w", err)
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("sales: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// HasNewerPending reports whether another PENDING sale of vehicleID was
// created at or after since.
func (r *repository) HasNewerPending(ctx context.Context, vehicleID, saleID string, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM sales
		WHERE vehicle_id = $1 AND id <> $2 AND status = $3 AND created_at >= $4)`,
		vehicleID, saleID, string(lifecycle.SalePending), since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sales: newer pending: %w", err)
	}
	return exists, nil
}

func (r *repository) CompareAndSwapStatus(ctx context.Context, id string, expected, next Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sales SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(expected), string(next), at)
	if err != nil {
		return fmt.Errorf("sales: swap status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return shared.ErrStatusConflict
}
