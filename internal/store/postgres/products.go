package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
)

var productSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"code":      "code",
	"brand":     "brand",
	"color":     "color",
	"sellPrice": "sell_price_cents",
	"costPrice": "cost_price_cents",
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	sizes, err := encodeJSON(product.Sizes)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Insert("products").
		Columns("id", "brand", "code", "color", "cost_price_cents", "sell_price_cents", "description", "sizes", "image_key", "created_at", "updated_at").
		Values(product.ID, product.Brand, product.Code, product.Color, int64(product.CostPrice), int64(product.SellPrice),
			product.Description, sizes, product.ImageKey, product.CreatedAt, product.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert product: %w", err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, conflictOr(err, "product code "+product.Code)
	}
	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.getProduct(ctx, squirrel.Eq{"id": id}, false)
}

func (s *Store) getProduct(ctx context.Context, where squirrel.Sqlizer, forUpdate bool) (*domain.Product, error) {
	q := s.sb.Select(productColumns).From("products").Where(where)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select product: %w", err)
	}
	var row productRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByCodes(ctx context.Context, codes []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	query, args, err := s.sb.Select(productColumns).From("products").Where(squirrel.Eq{"code": codes}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select products: %w", err)
	}
	var rows []productRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result[p.Code] = p
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	sizes, err := encodeJSON(product.Sizes)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Update("products").
		SetMap(map[string]any{
			"brand":            product.Brand,
			"code":             product.Code,
			"color":            product.Color,
			"cost_price_cents": int64(product.CostPrice),
			"sell_price_cents": int64(product.SellPrice),
			"description":      product.Description,
			"sizes":            sizes,
			"image_key":        product.ImageKey,
			"updated_at":       product.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": product.ID}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update product: %w", err)
	}
	var createdAt time.Time
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&createdAt); err != nil {
		return nil, conflictOr(notFoundOr(err), "product code "+product.Code)
	}
	updated := product
	updated.CreatedAt = createdAt.UTC()
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ScanProducts(ctx context.Context, q store.ProductScan) ([]domain.Product, error) {
	column, ok := productSortColumns[q.OrderBy]
	if !ok {
		column = "created_at"
	}
	sel := s.sb.Select(productColumns).From("products")
	if q.MinSellPrice != nil {
		sel = sel.Where(squirrel.GtOrEq{"sell_price_cents": int64(*q.MinSellPrice)})
	}
	if q.MaxSellPrice != nil {
		sel = sel.Where(squirrel.LtOrEq{"sell_price_cents": int64(*q.MaxSellPrice)})
	}
	if q.After != nil {
		sel = sel.Where(seekPredicate(column, store.ProductOrderFields[q.OrderBy], q.After, q.Desc))
	}
	sel = sel.OrderBy(orderClause(column, q.Desc), "id ASC")
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scan products: %w", err)
	}
	var rows []productRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// seekPredicate selects rows strictly after the seek position in
// (column dir, id asc) order.
func seekPredicate(column string, kind store.FieldKind, seek *store.Seek, desc bool) squirrel.Sqlizer {
	value := seek.Value
	if kind == store.KindTime {
		if ms, ok := value.(int64); ok {
			value = time.UnixMilli(ms).UTC()
		}
	}
	var beyond squirrel.Sqlizer = squirrel.Gt{column: value}
	if desc {
		beyond = squirrel.Lt{column: value}
	}
	return squirrel.Or{
		beyond,
		squirrel.And{squirrel.Eq{column: value}, squirrel.Gt{"id": seek.ID}},
	}
}

func orderClause(column string, desc bool) string {
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}
