package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PGRepository stores movements in stock_movements. The seq column (bigserial)
// orders movements per key; on-hand quantity is the new_quantity of the
// highest seq.
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Latest(ctx context.Context, key model.StockKey) (decimal.Decimal, error) {
	return latest(ctx, r.DB, key)
}

func latest(ctx context.Context, q sqlx.QueryerContext, key model.StockKey) (decimal.Decimal, error) {
	var qty decimal.Decimal
	query := `
        SELECT new_quantity FROM stock_movements
        WHERE product_id = $1 AND store_id = $2
        ORDER BY seq DESC LIMIT 1
    `
	err := sqlx.GetContext(ctx, q, &qty, query, key.ProductID, key.StoreID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return qty, nil
}

func (r *PGRepository) Append(ctx context.Context, movements []model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialize against other writers on the same keys for the life of the
	// transaction, in a fixed order.
	keys := make([]string, 0, len(movements))
	seen := map[string]bool{}
	for _, m := range movements {
		k := model.StockKey{ProductID: m.ProductID, StoreID: m.StoreID}.String()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, k); err != nil {
			return fmt.Errorf("failed to lock stock key %s: %w", k, err)
		}
	}

	pending := make(map[model.StockKey]decimal.Decimal)
	for _, m := range movements {
		key := model.StockKey{ProductID: m.ProductID, StoreID: m.StoreID}
		current, ok := pending[key]
		if !ok {
			current, err = latest(ctx, tx, key)
			if err != nil {
				return err
			}
		}
		if !current.Equal(m.PreviousQuantity) {
			return fmt.Errorf("%w: %s expected %s, found %s", inventory.ErrConcurrentUpdate, key, m.PreviousQuantity, current)
		}
		pending[key] = m.NewQuantity
	}

	insertQuery := `
        INSERT INTO stock_movements (
            id, product_id, store_id, kind,
            quantity_delta, previous_quantity, new_quantity,
            reason, reference_type, reference_id, actor_id, created_at
        )
        VALUES (
            :id, :product_id, :store_id, :kind,
            :quantity_delta, :previous_quantity, :new_quantity,
            :reason, :reference_type, :reference_id, :actor_id, :created_at
        )
    `
	for i := range movements {
		if _, err := tx.NamedExecContext(ctx, insertQuery, &movements[i]); err != nil {
			return fmt.Errorf("failed to log movement: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.StoreID != "" {
		conditions = append(conditions, "store_id = :store_id")
		args["store_id"] = f.StoreID
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = :kind")
		args["kind"] = string(f.Kind)
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			rows.Close()
			return nil, 0, err
		}
	}
	rows.Close()

	query := `SELECT id, product_id, store_id, kind, quantity_delta, previous_quantity, new_quantity,
        reason, reference_type, reference_id, actor_id, created_at
        FROM stock_movements` + whereClause + " ORDER BY seq DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) Snapshot(ctx context.Context) (inventory.Snapshot, error) {
	var rows []struct {
		ProductID   string          `db:"product_id"`
		StoreID     string          `db:"store_id"`
		NewQuantity decimal.Decimal `db:"new_quantity"`
	}
	query := `
        SELECT DISTINCT ON (product_id, store_id) product_id, store_id, new_quantity
        FROM stock_movements
        ORDER BY product_id, store_id, seq DESC
    `
	if err := r.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	snap := make(inventory.Snapshot, len(rows))
	for _, row := range rows {
		snap[model.StockKey{ProductID: row.ProductID, StoreID: row.StoreID}] = row.NewQuantity
	}
	return snap, nil
}
