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

func (s *Store) CreateExpense(ctx context.Context, expense domain.OtherExpense) (*domain.OtherExpense, error) {
	err := s.inTx(ctx, "create_expense", func(ctx context.Context) error {
		query, args, err := s.sb.Insert("other_expenses").
			Columns("id", "name", "cost_daily_cents", "date_iso", "created_at", "updated_at").
			Values(expense.ID, expense.Name, int64(expense.CostDaily), expense.DateISO, expense.CreatedAt, expense.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert expense: %w", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, query, args...); err != nil {
			return conflictOr(err, "expense "+expense.ID)
		}

		report, err := s.loadReportOrNew(ctx, expense.DateISO, expense.CreatedAt)
		if err != nil {
			return err
		}
		report.TotalExpenses += expense.CostDaily
		if !store.ContainsString(report.Meta.OtherExpenseIDs, expense.ID) {
			report.Meta.OtherExpenseIDs = append(report.Meta.OtherExpenseIDs, expense.ID)
		}
		report.UpdatedAt = expense.CreatedAt
		return s.saveReport(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	out := expense
	return &out, nil
}

func (s *Store) UpdateExpense(ctx context.Context, id string, patch store.ExpensePatch) (*domain.OtherExpense, error) {
	var out domain.OtherExpense
	err := s.inTx(ctx, "update_expense", func(ctx context.Context) error {
		current, err := s.getExpense(ctx, id, true)
		if err != nil {
			return err
		}
		report, err := s.loadExpenseReport(ctx, current, patch.DateISO)
		if err != nil {
			return err
		}

		updated := current
		if patch.Name != nil {
			updated.Name = *patch.Name
		}
		if patch.CostDaily != nil {
			updated.CostDaily = *patch.CostDaily
		}
		updated.UpdatedAt = patch.At
		if _, err := s.conn(ctx).ExecContext(ctx,
			`UPDATE other_expenses SET name = $1, cost_daily_cents = $2, updated_at = $3 WHERE id = $4`,
			updated.Name, int64(updated.CostDaily), updated.UpdatedAt, id); err != nil {
			return err
		}

		if delta := updated.CostDaily - current.CostDaily; delta != 0 {
			report.TotalExpenses += delta
			report.UpdatedAt = patch.At
			if err := s.saveReport(ctx, report); err != nil {
				return err
			}
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string, dateISO string, at time.Time) error {
	return s.inTx(ctx, "delete_expense", func(ctx context.Context) error {
		current, err := s.getExpense(ctx, id, true)
		if err != nil {
			return err
		}
		report, err := s.loadExpenseReport(ctx, current, dateISO)
		if err != nil {
			return err
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM other_expenses WHERE id = $1`, id); err != nil {
			return err
		}

		report.TotalExpenses -= current.CostDaily
		report.Meta.OtherExpenseIDs = store.RemoveString(report.Meta.OtherExpenseIDs, id)
		report.UpdatedAt = at
		return s.saveReport(ctx, report)
	})
}

func (s *Store) GetExpensesByIDs(ctx context.Context, ids []string) ([]domain.OtherExpense, error) {
	if len(ids) == 0 {
		return []domain.OtherExpense{}, nil
	}
	query, args, err := s.sb.Select(expenseColumns).From("other_expenses").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select expenses: %w", err)
	}
	var rows []expenseRow
	if err := sqlscan.Select(ctx, s.conn(ctx), &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.OtherExpense, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// loadExpenseReport locks the report that owns expense. Update and delete
// never create a report.
func (s *Store) loadExpenseReport(ctx context.Context, expense domain.OtherExpense, dateISO string) (domain.DailyReport, error) {
	if dateISO != expense.DateISO {
		return domain.DailyReport{}, fmt.Errorf("%w: expense %s belongs to %s, not %s",
			store.ErrInvalidInput, expense.ID, expense.DateISO, dateISO)
	}
	report, found, err := s.loadReport(ctx, expense.DateISO, true)
	if err != nil {
		return report, err
	}
	if !found {
		return report, fmt.Errorf("%w: report %s", store.ErrNotFound, expense.DateISO)
	}
	return report, nil
}

func (s *Store) getExpense(ctx context.Context, id string, forUpdate bool) (domain.OtherExpense, error) {
	sel := s.sb.Select(expenseColumns).From("other_expenses").Where(squirrel.Eq{"id": id})
	if forUpdate {
		sel = sel.Suffix("FOR UPDATE")
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return domain.OtherExpense{}, fmt.Errorf("build select expense: %w", err)
	}
	var row expenseRow
	if err := sqlscan.Get(ctx, s.conn(ctx), &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return domain.OtherExpense{}, fmt.Errorf("%w: expense %s", store.ErrNotFound, id)
		}
		return domain.OtherExpense{}, err
	}
	return row.toDomain(), nil
}
