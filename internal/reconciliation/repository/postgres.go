package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// PGRepository keeps sessions in inventory_count_sessions and their lines in
// inventory_count_lines. Movements written at finalize are stored as JSON on
// the session row so a repeated finalize can return them.
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type sessionRow struct {
	model.CountSession
	Movements []byte `db:"movements"`
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.CountSession, error) {
	var row sessionRow
	query := `
        SELECT id, store_id, actor_id, state, started_at, finalized_at, movements
        FROM inventory_count_sessions WHERE id = $1
    `
	if err := r.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s := row.CountSession
	if len(row.Movements) > 0 {
		if err := json.Unmarshal(row.Movements, &s.Movements); err != nil {
			return nil, err
		}
	}

	var lines []model.CountLine
	linesQuery := `
        SELECT product_id, system_quantity, counted_quantity
        FROM inventory_count_lines WHERE session_id = $1
    `
	if err := r.DB.SelectContext(ctx, &lines, linesQuery, id); err != nil {
		return nil, err
	}
	s.Lines = make(map[string]model.CountLine, len(lines))
	for _, l := range lines {
		s.Lines[l.ProductID] = l
	}
	return &s, nil
}

func (r *PGRepository) Save(ctx context.Context, s *model.CountSession) error {
	movements, err := json.Marshal(s.Movements)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := `
        INSERT INTO inventory_count_sessions (id, store_id, actor_id, state, started_at, finalized_at, movements)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            state = EXCLUDED.state,
            finalized_at = EXCLUDED.finalized_at,
            movements = EXCLUDED.movements
    `
	if _, err := tx.ExecContext(ctx, upsert, s.ID, s.StoreID, s.ActorID, s.State, s.StartedAt, s.FinalizedAt, movements); err != nil {
		return err
	}

	lineUpsert := `
        INSERT INTO inventory_count_lines (session_id, product_id, system_quantity, counted_quantity)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (session_id, product_id) DO UPDATE SET
            counted_quantity = EXCLUDED.counted_quantity
    `
	for _, l := range s.SortedLines() {
		if _, err := tx.ExecContext(ctx, lineUpsert, s.ID, l.ProductID, l.SystemQuantity, l.CountedQuantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}
