package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type productRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Kind        string          `db:"kind"`
	BasePrice   decimal.Decimal `db:"base_price"`
	TracksStock bool            `db:"tracks_stock"`
	MinStock    int             `db:"min_stock"`
	Unit        sql.NullString  `db:"unit"`
}

type optionRow struct {
	ID              string          `db:"id"`
	ProductID       string          `db:"product_id"`
	GroupName       string          `db:"group_name"`
	Value           string          `db:"value"`
	PriceAdjustment decimal.Decimal `db:"price_adjustment"`
	Stock           int             `db:"stock"`
}

type componentRow struct {
	ProductID          string          `db:"product_id"`
	ComponentProductID string          `db:"component_product_id"`
	Quantity           decimal.Decimal `db:"quantity"`
}

const selectProducts = `SELECT id, name, kind, base_price, tracks_stock, min_stock, unit FROM products`

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var row productRow
	err := r.DB.GetContext(ctx, &row, selectProducts+` WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	products, err := r.hydrate(ctx, []productRow{row})
	if err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *PGRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var rows []productRow
	if err := r.DB.SelectContext(ctx, &rows, selectProducts+` ORDER BY name ASC`); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.Product{}, nil
	}
	return r.hydrate(ctx, rows)
}

// hydrate loads options and components for the given rows in two queries
// and builds the tagged products.
func (r *PGRepository) hydrate(ctx context.Context, rows []productRow) ([]model.Product, error) {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	query, args, err := sqlx.In(`
        SELECT id, product_id, group_name, value, price_adjustment, stock
        FROM product_variation_options
        WHERE product_id IN (?)
        ORDER BY group_name ASC, value ASC
    `, ids)
	if err != nil {
		return nil, err
	}
	var options []optionRow
	if err := r.DB.SelectContext(ctx, &options, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}

	query, args, err = sqlx.In(`
        SELECT product_id, component_product_id, quantity
        FROM product_components
        WHERE product_id IN (?)
    `, ids)
	if err != nil {
		return nil, err
	}
	var components []componentRow
	if err := r.DB.SelectContext(ctx, &components, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}

	optionsByProduct := map[string][]model.VariationOption{}
	for _, o := range options {
		optionsByProduct[o.ProductID] = append(optionsByProduct[o.ProductID], model.VariationOption{
			ID:              o.ID,
			GroupName:       o.GroupName,
			Value:           o.Value,
			PriceAdjustment: o.PriceAdjustment,
			Stock:           o.Stock,
		})
	}
	componentsByProduct := map[string][]model.Component{}
	for _, c := range components {
		componentsByProduct[c.ProductID] = append(componentsByProduct[c.ProductID], model.Component{
			ProductID: c.ComponentProductID,
			Quantity:  c.Quantity,
		})
	}

	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		p, err := buildProduct(row, optionsByProduct[row.ID], componentsByProduct[row.ID])
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", row.ID, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func buildProduct(row productRow, options []model.VariationOption, components []model.Component) (model.Product, error) {
	switch model.ProductKind(row.Kind) {
	case model.KindSimple:
		return model.NewSimpleProduct(row.ID, row.Name, row.BasePrice, row.TracksStock, row.MinStock), nil
	case model.KindVariable:
		return model.NewVariableProduct(row.ID, row.Name, row.BasePrice, row.TracksStock, row.MinStock, options)
	case model.KindComposite:
		return model.NewCompositeProduct(row.ID, row.Name, row.BasePrice, components)
	case model.KindFractional:
		return model.NewFractionalProduct(row.ID, row.Name, row.BasePrice, row.TracksStock, row.MinStock, row.Unit.String)
	default:
		return model.Product{}, fmt.Errorf("unknown product kind %q", row.Kind)
	}
}
