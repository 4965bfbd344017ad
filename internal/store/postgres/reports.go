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

func (s *Store) GetDailyReport(ctx context.Context, date string) (*domain.DailyReport, error) {
	report, found, err := s.loadReport(ctx, date, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return &report, nil
}

func (s *Store) GetDailyReports(ctx context.Context, dates []string) ([]domain.DailyReport, error) {
	if len(dates) == 0 {
		return []domain.DailyReport{}, nil
	}
	query, args, err := s.sb.Select(reportColumns).From("daily_reports").
		Where(squirrel.Eq{"date": dates}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reports: %w", err)
	}
	return s.selectReports(ctx, query, args)
}

func (s *Store) ListDailyReports(ctx context.Context, q store.ReportScan) ([]domain.DailyReport, error) {
	sel := s.sb.Select(reportColumns).From("daily_reports")
	if q.From != "" {
		sel = sel.Where(squirrel.GtOrEq{"date": q.From})
	}
	if q.To != "" {
		sel = sel.Where(squirrel.Lt{"date": q.To})
	}
	if q.Before != "" {
		sel = sel.Where(squirrel.Lt{"date": q.Before})
	}
	sel = sel.OrderBy("date DESC")
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reports: %w", err)
	}
	return s.selectReports(ctx, query, args)
}

func (s *Store) UpdateDailyReport(ctx context.Context, date string, patch store.ReportPatch) (*domain.DailyReport, error) {
	var out domain.DailyReport
	err := s.inTx(ctx, "update_daily_report", func(ctx context.Context) error {
		report, found, err := s.loadReport(ctx, date, true)
		if err != nil {
			return err
		}
		if !found {
			report = domain.NewDailyReport(date, patch.At)
		}
		report.ApplyPatch(patch.StoreTotals, patch.TotalSales, patch.TotalExpenses, patch.Utilities, patch.OtherExpenseIDs, patch.StoreIDs)
		report.Date = date
		report.UpdatedAt = patch.At
		if err := s.saveReport(ctx, report); err != nil {
			return err
		}
		out = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) EnsureDailyReport(ctx context.Context, date string, at time.Time) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO daily_reports (date, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (date) DO NOTHING
	`, date, at)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *Store) loadReport(ctx context.Context, date string, forUpdate bool) (domain.DailyReport, bool, error) {
	sel := s.sb.Select(reportColumns).From("daily_reports").Where(squirrel.Eq{"date": date})
	if forUpdate {
		sel = sel.Suffix("FOR UPDATE")
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return domain.DailyReport{}, false, fmt.Errorf("build select report: %w", err)
	}
	var row reportRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return domain.DailyReport{}, false, nil
		}
		return domain.DailyReport{}, false, err
	}
	report, err := row.toDomain()
	if err != nil {
		return report, false, err
	}
	return report, true, nil
}

// loadReportOrNew locks the report for date, or returns a fresh one.
func (s *Store) loadReportOrNew(ctx context.Context, date string, at time.Time) (domain.DailyReport, error) {
	report, found, err := s.loadReport(ctx, date, true)
	if err != nil {
		return report, err
	}
	if !found {
		report = domain.NewDailyReport(date, at)
	}
	return report, nil
}

func (s *Store) saveReport(ctx context.Context, r domain.DailyReport) error {
	storeTotals, err := encodeCentsMap(r.StoreTotals)
	if err != nil {
		return err
	}
	paymentTotals, err := encodeCentsMap(r.PaymentTotals)
	if err != nil {
		return err
	}
	storePayments, err := encodeNestedCents(r.StorePaymentTotals)
	if err != nil {
		return err
	}
	meta, err := encodeJSON(r.Meta)
	if err != nil {
		return err
	}

	query, args, err := s.sb.Insert("daily_reports").
		Columns("date", "store_totals", "total_sales", "total_expenses", "payment_totals",
			"store_payment_totals", "utilities", "meta", "created_at", "updated_at").
		Values(r.Date, storeTotals, int64(r.TotalSales), int64(r.TotalExpenses), paymentTotals,
			storePayments, int64(r.Utilities), meta, r.CreatedAt, r.UpdatedAt).
		Suffix(`ON CONFLICT (date) DO UPDATE SET
			store_totals = EXCLUDED.store_totals,
			total_sales = EXCLUDED.total_sales,
			total_expenses = EXCLUDED.total_expenses,
			payment_totals = EXCLUDED.payment_totals,
			store_payment_totals = EXCLUDED.store_payment_totals,
			utilities = EXCLUDED.utilities,
			meta = EXCLUDED.meta,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert report: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, query, args...)
	return err
}

func (s *Store) selectReports(ctx context.Context, query string, args []any) ([]domain.DailyReport, error) {
	var rows []reportRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.DailyReport, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
