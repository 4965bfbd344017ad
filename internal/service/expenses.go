package service

import (
	"context"
	"strings"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.OtherExpense, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.OtherExpense{}, err
	}
	if err := s.check(req); err != nil {
		return domain.OtherExpense{}, err
	}
	date, err := checkDate(req.DateISO)
	if err != nil {
		return domain.OtherExpense{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.OtherExpense{}, invalid("name is required")
	}

	now := s.clock()
	created, err := s.repo.CreateExpense(ctx, domain.OtherExpense{
		ID:        xid.New("exp"),
		Name:      name,
		CostDaily: *req.CostDaily,
		DateISO:   date,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.OtherExpense{}, err
	}
	logger.Info(ctx, "expense created", "id", created.ID, "date", date, "cost", created.CostDaily.String())
	return *created, nil
}

// UpdateExpense renames or re-prices an expense. A cost change moves the
// day's totalExpenses by the difference.
func (s *Service) UpdateExpense(ctx context.Context, id string, req domain.ExpenseUpdateRequest) (domain.OtherExpense, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.OtherExpense{}, err
	}
	if err := s.check(req); err != nil {
		return domain.OtherExpense{}, err
	}
	date, err := checkDate(req.DateISO)
	if err != nil {
		return domain.OtherExpense{}, err
	}
	if req.Name == nil && req.CostDaily == nil {
		return domain.OtherExpense{}, invalid("name or costDaily is required")
	}

	patch := store.ExpensePatch{CostDaily: req.CostDaily, DateISO: date, At: s.clock()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.OtherExpense{}, invalid("name must not be blank")
		}
		patch.Name = &name
	}

	updated, err := s.repo.UpdateExpense(ctx, strings.TrimSpace(id), patch)
	if err != nil {
		return domain.OtherExpense{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string, dateISO string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	date, err := checkDate(dateISO)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, strings.TrimSpace(id), date, s.clock()); err != nil {
		return err
	}
	logger.Info(ctx, "expense deleted", "id", id, "date", date)
	return nil
}

// ListExpenses resolves the expenses a day's report references, in report
// order. Dangling ids are skipped.
func (s *Service) ListExpenses(ctx context.Context, dateISO string) ([]domain.OtherExpense, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	date, err := checkDate(dateISO)
	if err != nil {
		return nil, err
	}
	report, err := s.repo.GetDailyReport(ctx, date)
	if err != nil {
		return nil, err
	}

	found, err := s.repo.GetExpensesByIDs(ctx, report.Meta.OtherExpenseIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.OtherExpense, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}

	out := make([]domain.OtherExpense, 0, len(report.Meta.OtherExpenseIDs))
	for _, id := range report.Meta.OtherExpenseIDs {
		e, ok := byID[id]
		if !ok {
			logger.Warn(ctx, "dangling expense id in report", "date", date, "expense_id", id)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
