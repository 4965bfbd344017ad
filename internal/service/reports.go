package service

import (
	"context"
	"strings"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/lima"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/store"
)

const (
	defaultReportLimit = 50
	maxReportLimit     = 200
)

func checkDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if !lima.ValidDate(date) {
		return "", invalid("date must be YYYY-MM-DD, got %q", date)
	}
	return date, nil
}

func (s *Service) GetReport(ctx context.Context, date string) (domain.DailyReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.DailyReport{}, err
	}
	date, err := checkDate(date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	report, err := s.repo.GetDailyReport(ctx, date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	return *report, nil
}

// ListReports pages reports by date descending. The page token is the date
// of the last report returned.
func (s *Service) ListReports(ctx context.Context, month string, limit int, pageToken string) (domain.ReportPage, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.ReportPage{}, err
	}
	switch {
	case limit <= 0:
		limit = defaultReportLimit
	case limit > maxReportLimit:
		limit = maxReportLimit
	}

	q := store.ReportScan{Limit: limit + 1}
	if month = strings.TrimSpace(month); month != "" {
		if !lima.ValidMonth(month) {
			return domain.ReportPage{}, invalid("month must be YYYY-MM, got %q", month)
		}
		from, to, err := lima.MonthRange(month)
		if err != nil {
			return domain.ReportPage{}, invalid("%v", err)
		}
		q.From, q.To = from, to
	}
	if pageToken = strings.TrimSpace(pageToken); pageToken != "" {
		if !lima.ValidDate(pageToken) {
			return domain.ReportPage{}, invalid("malformed page token")
		}
		q.Before = pageToken
	}

	reports, err := s.repo.ListDailyReports(ctx, q)
	if err != nil {
		return domain.ReportPage{}, err
	}
	page := domain.ReportPage{Items: reports}
	if len(reports) > limit {
		page.Items = reports[:limit]
		last := page.Items[limit-1].Date
		page.NextPageToken = &last
	}
	page.Count = len(page.Items)
	return page, nil
}

// UpdateReport merges the allow-listed fields into the report for date,
// creating it from the empty template when absent. A date in the body is
// ignored in favour of the path date.
func (s *Service) UpdateReport(ctx context.Context, date string, req domain.ReportUpdateRequest) (domain.DailyReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.DailyReport{}, err
	}
	date, err := checkDate(date)
	if err != nil {
		return domain.DailyReport{}, err
	}

	patch := store.ReportPatch{
		StoreTotals:   req.StoreTotals,
		TotalSales:    req.TotalSales,
		TotalExpenses: req.TotalExpenses,
		Utilities:     req.Utilities,
		At:            s.clock(),
	}
	if req.Meta != nil {
		patch.OtherExpenseIDs = req.Meta.OtherExpenseIDs
		patch.StoreIDs = req.Meta.StoreIDs
	}

	report, err := s.repo.UpdateDailyReport(ctx, date, patch)
	if err != nil {
		return domain.DailyReport{}, err
	}
	logger.Info(ctx, "daily report updated", "date", date)
	return *report, nil
}

// RecomputeUtilities sets utilities to totalSales - totalExpenses.
func (s *Service) RecomputeUtilities(ctx context.Context, date string) (domain.DailyReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.DailyReport{}, err
	}
	date, err := checkDate(date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	current, err := s.repo.GetDailyReport(ctx, date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	utilities := current.TotalSales - current.TotalExpenses
	report, err := s.repo.UpdateDailyReport(ctx, date, store.ReportPatch{Utilities: &utilities, At: s.clock()})
	if err != nil {
		return domain.DailyReport{}, err
	}
	return *report, nil
}

func (s *Service) EnsureReport(ctx context.Context, date string) (bool, error) {
	if err := requireAdmin(ctx); err != nil {
		return false, err
	}
	date, err := checkDate(date)
	if err != nil {
		return false, err
	}
	return s.repo.EnsureDailyReport(ctx, date, s.clock())
}

// EnsureToday creates today's (Lima) report when missing and returns its date.
func (s *Service) EnsureToday(ctx context.Context) (string, bool, error) {
	if err := requireAdmin(ctx); err != nil {
		return "", false, err
	}
	now := s.clock()
	date := lima.DateOf(now)
	created, err := s.repo.EnsureDailyReport(ctx, date, now)
	if err != nil {
		return "", false, err
	}
	if created {
		logger.Info(ctx, "daily report created", "date", date)
	}
	return date, created, nil
}
