package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/lima"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/money"
)

const (
	defaultExportDays = 15
	maxExportDays     = 15
	maxExportLookback = 30

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	exportSheet = "Report"
	utf8BOM     = "\ufeff"
)

var exportBaseColumns = []string{
	"DATE", "SALES_COUNT", "SALES", "PRODUCTS", "EXPENSES",
	"TOTAL_SALES", "TOTAL_EXPENSES", "UTILITIES",
}

type ExportParams struct {
	End    string
	Days   int
	Format string
}

type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportReports renders the reports of Days consecutive Lima days ending at
// End as CSV or XLSX. Days without a report are omitted.
func (s *Service) ExportReports(ctx context.Context, p ExportParams) (ExportFile, error) {
	if err := requireAdmin(ctx); err != nil {
		return ExportFile{}, err
	}

	format := strings.ToLower(strings.TrimSpace(p.Format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return ExportFile{}, invalid("format must be csv or xlsx")
	}

	days := p.Days
	if days == 0 {
		days = defaultExportDays
	}
	if days < 1 || days > maxExportDays {
		return ExportFile{}, invalid("days must be within 1..%d", maxExportDays)
	}

	today := lima.DateOf(s.clock())
	end := strings.TrimSpace(p.End)
	if end == "" {
		end = today
	}
	if !lima.ValidDate(end) {
		return ExportFile{}, invalid("end must be YYYY-MM-DD, got %q", end)
	}
	earliest, err := lima.AddDays(today, -maxExportLookback)
	if err != nil {
		return ExportFile{}, err
	}
	if end < earliest || end > today {
		return ExportFile{}, invalid("end must lie within [%s, %s]", earliest, today)
	}

	dates, err := lima.DatesEndingAt(end, days)
	if err != nil {
		return ExportFile{}, invalid("%v", err)
	}
	rows, err := s.exportRows(ctx, dates)
	if err != nil {
		return ExportFile{}, err
	}

	name := fmt.Sprintf("export_%s_to_%s.%s", dates[0], dates[len(dates)-1], format)
	if format == FormatXLSX {
		body, err := renderXLSX(rows)
		if err != nil {
			return ExportFile{}, err
		}
		return ExportFile{
			Filename:    name,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	}
	body, err := renderCSV(rows)
	if err != nil {
		return ExportFile{}, err
	}
	return ExportFile{Filename: name, ContentType: "text/csv; charset=utf-8", Body: body}, nil
}

// exportRows returns the header followed by one row per existing report.
func (s *Service) exportRows(ctx context.Context, dates []string) ([][]string, error) {
	reports, err := s.repo.GetDailyReports(ctx, dates)
	if err != nil {
		return nil, err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Date < reports[j].Date })

	storeSet := map[string]struct{}{}
	for _, r := range reports {
		for _, id := range r.Meta.StoreIDs {
			storeSet[id] = struct{}{}
		}
	}
	storeIDs := make([]string, 0, len(storeSet))
	for id := range storeSet {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	header := append([]string{}, exportBaseColumns...)
	for _, id := range storeIDs {
		header = append(header, "store_"+id)
	}
	out := [][]string{header}

	for _, report := range reports {
		row, err := s.exportRow(ctx, report, storeIDs)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Projections written into the JSON cells of an export row. A product code
// with no catalog entry is still listed with just its code.
type exportSale struct {
	ProductCode string      `json:"productCode"`
	StoreID     string      `json:"storeId"`
	Quantity    int         `json:"quantity"`
	SubGain     money.Cents `json:"subGain"`
}

type exportProduct struct {
	Code        string       `json:"code"`
	Description string       `json:"description,omitempty"`
	SellPrice   *money.Cents `json:"sellPrice,omitempty"`
	CostPrice   *money.Cents `json:"costPrice,omitempty"`
}

type exportExpense struct {
	Name      string      `json:"name"`
	CostDaily money.Cents `json:"costDaily"`
}

func (s *Service) exportRow(ctx context.Context, report domain.DailyReport, storeIDs []string) ([]string, error) {
	from, to, err := lima.DayBounds(report.Date)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSalesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales for %s: %w", report.Date, err)
	}

	var codes []string
	seen := map[string]bool{}
	for _, sale := range sales {
		if !seen[sale.ProductCode] {
			seen[sale.ProductCode] = true
			codes = append(codes, sale.ProductCode)
		}
	}
	byCode, err := s.repo.GetProductsByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("products for %s: %w", report.Date, err)
	}
	products := make([]exportProduct, 0, len(codes))
	for _, code := range codes {
		entry := exportProduct{Code: code}
		if p, ok := byCode[code]; ok {
			entry.Description = p.Description
			entry.SellPrice = &p.SellPrice
			entry.CostPrice = &p.CostPrice
		}
		products = append(products, entry)
	}

	expenses, err := s.repo.GetExpensesByIDs(ctx, report.Meta.OtherExpenseIDs)
	if err != nil {
		return nil, fmt.Errorf("expenses for %s: %w", report.Date, err)
	}
	if len(expenses) != len(report.Meta.OtherExpenseIDs) {
		logger.Warn(ctx, "report references missing expenses", "date", report.Date,
			"referenced", len(report.Meta.OtherExpenseIDs), "found", len(expenses))
	}

	slimSales := make([]exportSale, 0, len(sales))
	for _, sale := range sales {
		slimSales = append(slimSales, exportSale{
			ProductCode: sale.ProductCode,
			StoreID:     sale.StoreID,
			Quantity:    sale.Quantity,
			SubGain:     sale.SubGain,
		})
	}
	slimExpenses := make([]exportExpense, 0, len(expenses))
	for _, e := range expenses {
		slimExpenses = append(slimExpenses, exportExpense{Name: e.Name, CostDaily: e.CostDaily})
	}

	salesJSON, err := json.Marshal(slimSales)
	if err != nil {
		return nil, err
	}
	productsJSON, err := json.Marshal(products)
	if err != nil {
		return nil, err
	}
	expensesJSON, err := json.Marshal(slimExpenses)
	if err != nil {
		return nil, err
	}

	row := []string{
		report.Date,
		strconv.Itoa(len(sales)),
		string(salesJSON),
		string(productsJSON),
		string(expensesJSON),
		money.Format(report.TotalSales),
		money.Format(report.TotalExpenses),
		money.Format(report.Utilities),
	}
	for _, id := range storeIDs {
		row = append(row, money.Format(report.StoreTotals[id]))
	}
	return row, nil
}

func renderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
