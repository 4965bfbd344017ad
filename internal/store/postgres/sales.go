package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

var saleSortColumns = map[string]string{
	"timestamp":        "sold_at",
	"productCode":      "product_code",
	"storeId":          "store_id",
	"paymentMethod":    "payment_method",
	"quantity":         "quantity",
	"subGain":          "sub_gain_cents",
	"appliedSellPrice": "applied_sell_price_cents",
	"revenue":          "revenue_cents",
}

// mergeSaleSQL folds one sale into the day's report with in-place jsonb
// increments so concurrent sales never overwrite each other's totals.
// $1 date, $2 store id, $3 gain, $4 payment method, $5 revenue, $6 time.
const mergeSaleSQL = `
INSERT INTO daily_reports (
	date, store_totals, total_sales, total_expenses, payment_totals,
	store_payment_totals, utilities, meta, created_at, updated_at
)
VALUES (
	$1,
	jsonb_build_object($2::text, $3::bigint),
	$3::bigint,
	0,
	jsonb_build_object($4::text, $5::bigint),
	jsonb_build_object($2::text, jsonb_build_object($4::text, $5::bigint)),
	0,
	jsonb_build_object('otherExpenseIds', '[]'::jsonb, 'storeIds', jsonb_build_array($2::text)),
	$6,
	$6
)
ON CONFLICT (date) DO UPDATE SET
	total_sales = daily_reports.total_sales + $3::bigint,
	store_totals = daily_reports.store_totals || jsonb_build_object(
		$2::text, COALESCE((daily_reports.store_totals->>$2::text)::bigint, 0) + $3::bigint),
	payment_totals = daily_reports.payment_totals || jsonb_build_object(
		$4::text, COALESCE((daily_reports.payment_totals->>$4::text)::bigint, 0) + $5::bigint),
	store_payment_totals = daily_reports.store_payment_totals || jsonb_build_object(
		$2::text,
		COALESCE(daily_reports.store_payment_totals->$2::text, '{}'::jsonb) || jsonb_build_object(
			$4::text, COALESCE((daily_reports.store_payment_totals->$2::text->>$4::text)::bigint, 0) + $5::bigint)),
	meta = CASE
		WHEN COALESCE(daily_reports.meta->'storeIds', '[]'::jsonb) @> jsonb_build_array($2::text) THEN daily_reports.meta
		ELSE jsonb_set(daily_reports.meta, '{storeIds}',
			COALESCE(daily_reports.meta->'storeIds', '[]'::jsonb) || jsonb_build_array($2::text))
	END,
	updated_at = $6
`

func (s *Store) RegisterSale(ctx context.Context, in store.SaleInput) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.inTx(ctx, "register_sale", func(ctx context.Context) error {
		product, err := s.getProduct(ctx, squirrel.Eq{"code": in.ProductCode}, true)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: product %s", store.ErrNotFound, in.ProductCode)
			}
			return err
		}

		idx := -1
		for i, entry := range product.Sizes {
			if entry.Size == in.Size {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: stock not found for size %s", store.ErrNotFound, in.Size)
		}
		newQty := product.Sizes[idx].Quantity - in.Quantity
		if newQty < 0 {
			return fmt.Errorf("%w: size %s has %d left", store.ErrInsufficientStock, in.Size, product.Sizes[idx].Quantity)
		}
		product.Sizes[idx].Quantity = newQty

		sizes, err := encodeJSON(product.Sizes)
		if err != nil {
			return err
		}
		if _, err := s.conn(ctx).ExecContext(ctx,
			`UPDATE products SET sizes = $1, updated_at = $2 WHERE id = $3`,
			sizes, in.At, product.ID); err != nil {
			return err
		}

		sale = domain.NewSale(in.SaleID, *product, in.StoreID, in.Size, in.Quantity, in.PaymentMethod, in.AppliedPrice, in.At)
		if sale.ID == "" {
			sale.ID = xid.New("sal")
		}
		query, args, err := s.sb.Insert("sales").
			Columns("id", "product_code", "store_id", "quantity", "size", "cost_price_cents",
				"original_sell_price_cents", "applied_sell_price_cents", "sub_gain_cents",
				"revenue_cents", "payment_method", "sold_at").
			Values(sale.ID, sale.ProductCode, sale.StoreID, sale.Quantity, sale.Size, int64(sale.CostPrice),
				int64(sale.OriginalSellPrice), int64(sale.AppliedSellPrice), int64(sale.SubGain),
				int64(sale.Revenue), sale.PaymentMethod, sale.Timestamp).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert sale: %w", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
			return conflictOr(err, "sale "+sale.ID)
		}

		_, err = s.conn(ctx).ExecContext(ctx, mergeSaleSQL,
			in.ReportDate, sale.StoreID, int64(sale.SubGain), sale.PaymentMethod, int64(sale.Revenue), in.At)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ScanSales(ctx context.Context, q store.SaleScan) ([]domain.Sale, error) {
	column, ok := saleSortColumns[q.OrderBy]
	if !ok {
		column = "sold_at"
	}
	sel := s.sb.Select(saleColumns).From("sales")
	if q.StoreID != "" {
		sel = sel.Where(squirrel.Eq{"store_id": q.StoreID})
	}
	if q.ProductCode != "" {
		sel = sel.Where(squirrel.Eq{"product_code": q.ProductCode})
	}
	if q.PaymentMethodPrefix != "" {
		sel = sel.Where(squirrel.Like{"payment_method": escapeLike(q.PaymentMethodPrefix) + "%"})
	}
	if q.From != nil {
		sel = sel.Where(squirrel.GtOrEq{"sold_at": *q.From})
	}
	if q.To != nil {
		sel = sel.Where(squirrel.Lt{"sold_at": *q.To})
	}
	if q.After != nil {
		sel = sel.Where(seekPredicate(column, store.SaleOrderFields[q.OrderBy], q.After, q.Desc))
	}
	sel = sel.OrderBy(orderClause(column, q.Desc), "id ASC")
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scan sales: %w", err)
	}
	var rows []saleRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	query, args, err := s.sb.Select(saleColumns).From("sales").
		Where(squirrel.GtOrEq{"sold_at": from}).
		Where(squirrel.Lt{"sold_at": to}).
		OrderBy("sold_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sales between: %w", err)
	}
	var rows []saleRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
