package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
	"retailops/backend/internal/store"
)

func TestExpenseLifecycleMovesTotals(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	const day = "2026-02-27"

	created, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Name: " Luz ", CostDaily: cents(5000), DateISO: day})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if created.Name != "Luz" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	report, err := svc.GetReport(ctx, day)
	if err != nil {
		t.Fatalf("report must be created with the expense: %v", err)
	}
	if report.TotalExpenses != 5000 || len(report.Meta.OtherExpenseIDs) != 1 {
		t.Fatalf("unexpected report after create %+v", report)
	}

	if _, err := svc.UpdateExpense(ctx, created.ID, domain.ExpenseUpdateRequest{DateISO: day}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected update without fields to fail, got %v", err)
	}
	if _, err := svc.UpdateExpense(ctx, created.ID, domain.ExpenseUpdateRequest{CostDaily: cents(8000), DateISO: day}); err != nil {
		t.Fatalf("update expense: %v", err)
	}
	report, _ = svc.GetReport(ctx, day)
	if report.TotalExpenses != 8000 {
		t.Fatalf("expected delta applied, got %d", report.TotalExpenses)
	}

	listed, err := svc.ListExpenses(ctx, day)
	if err != nil || len(listed) != 1 || listed[0].CostDaily != 8000 {
		t.Fatalf("unexpected listing %+v (%v)", listed, err)
	}

	if err := svc.DeleteExpense(ctx, created.ID, day); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	report, _ = svc.GetReport(ctx, day)
	if report.TotalExpenses != 0 || len(report.Meta.OtherExpenseIDs) != 0 {
		t.Fatalf("expected totals back to zero, got %+v", report)
	}
	if err := svc.DeleteExpense(ctx, created.ID, day); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestExpenseChangesStayOnTheirOwnDay(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	const day, other = "2026-02-20", "2026-02-21"

	created, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Name: "Alquiler", CostDaily: cents(5000), DateISO: day})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if _, err := svc.UpdateExpense(ctx, created.ID, domain.ExpenseUpdateRequest{CostDaily: cents(9000), DateISO: other}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected update on another day to be rejected, got %v", err)
	}
	if err := svc.DeleteExpense(ctx, created.ID, other); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected delete on another day to be rejected, got %v", err)
	}
	if _, err := svc.GetReport(ctx, other); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("no report may appear for %s, got %v", other, err)
	}

	report, err := svc.GetReport(ctx, day)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.TotalExpenses != 5000 || len(report.Meta.OtherExpenseIDs) != 1 {
		t.Fatalf("expected the owning report untouched, got %+v", report)
	}
	listed, err := svc.ListExpenses(ctx, day)
	if err != nil || len(listed) != 1 || listed[0].CostDaily != 5000 {
		t.Fatalf("expense must survive the rejected calls: %+v (%v)", listed, err)
	}
}

func TestListExpensesSkipsDanglingIDs(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	const day = "2026-02-26"

	if _, err := svc.ListExpenses(ctx, day); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found without a report, got %v", err)
	}
	e, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Name: "Agua", CostDaily: cents(1250), DateISO: day})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ids := []string{"exp_gone", e.ID}
	if _, err := svc.UpdateReport(ctx, day, domain.ReportUpdateRequest{Meta: &domain.ReportMetaPatch{OtherExpenseIDs: &ids}}); err != nil {
		t.Fatalf("update report: %v", err)
	}
	listed, err := svc.ListExpenses(ctx, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != e.ID {
		t.Fatalf("expected only the live expense, got %+v", listed)
	}
}

func TestUpdateReportMergesAndUpserts(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	other := "2030-01-01"
	report, err := svc.UpdateReport(ctx, "2026-02-20", domain.ReportUpdateRequest{
		StoreTotals: map[string]money.Cents{"1": 1000},
		TotalSales:  cents(1000),
		Date:        &other,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if report.Date != "2026-02-20" {
		t.Fatalf("path date must win, got %s", report.Date)
	}

	report, err = svc.UpdateReport(ctx, "2026-02-20", domain.ReportUpdateRequest{
		StoreTotals:   map[string]money.Cents{"2": 500},
		TotalExpenses: cents(300),
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if report.StoreTotals["1"] != 1000 || report.StoreTotals["2"] != 500 || report.TotalSales != 1000 {
		t.Fatalf("expected key-wise merge, got %+v", report)
	}

	report, err = svc.RecomputeUtilities(ctx, "2026-02-20")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if report.Utilities != 700 {
		t.Fatalf("expected utilities 7.00, got %s", report.Utilities)
	}

	if _, err := svc.UpdateReport(ctx, "2026-2-20", domain.ReportUpdateRequest{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected malformed date to fail, got %v", err)
	}
}

func TestEnsureReportIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	date, created, err := svc.EnsureToday(ctx)
	if err != nil || !created || date != "2026-03-01" {
		t.Fatalf("first ensure: date=%s created=%v err=%v", date, created, err)
	}
	_, created, err = svc.EnsureToday(ctx)
	if err != nil || created {
		t.Fatalf("second ensure must be a no-op: created=%v err=%v", created, err)
	}
	report, err := svc.GetReport(ctx, date)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if report.Meta.OtherExpenseIDs == nil || report.Meta.StoreIDs == nil || report.TotalSales != 0 {
		t.Fatalf("expected empty template, got %+v", report)
	}
}

func TestListReportsPagesByDateDescending(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	for _, d := range []string{"2026-01-31", "2026-02-01", "2026-02-02", "2026-02-03"} {
		if _, err := svc.EnsureReport(ctx, d); err != nil {
			t.Fatalf("ensure %s: %v", d, err)
		}
	}

	page, err := svc.ListReports(ctx, "2026-02", 2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Count != 2 || page.Items[0].Date != "2026-02-03" || page.Items[1].Date != "2026-02-02" {
		t.Fatalf("unexpected first page %+v", page.Items)
	}
	if page.NextPageToken == nil || *page.NextPageToken != "2026-02-02" {
		t.Fatalf("expected token 2026-02-02, got %v", page.NextPageToken)
	}

	page, err = svc.ListReports(ctx, "2026-02", 2, *page.NextPageToken)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Count != 1 || page.Items[0].Date != "2026-02-01" || page.NextPageToken != nil {
		t.Fatalf("unexpected last page %+v", page)
	}

	if _, err := svc.ListReports(ctx, "2026-13", 0, ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid month, got %v", err)
	}
}

func readExportCSV(t *testing.T, body []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(body, []byte("\xef\xbb\xbf")) {
		t.Fatalf("export must start with a UTF-8 BOM")
	}
	rows, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}

func TestExportCSV(t *testing.T) {
	svc := newTestService()
	if _, err := svc.RegisterSale(workerCtx(), domain.RegisterSaleRequest{
		ProductCode: "ABC1", StoreID: "2", Quantity: 2, Size: "38", PaymentMethod: "cash",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.CreateExpense(adminCtx(), domain.ExpenseCreateRequest{Name: "Alquiler, \"local\"", CostDaily: cents(500), DateISO: "2026-03-01"}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	file, err := svc.ExportReports(adminCtx(), ExportParams{End: "2026-03-01", Days: 2})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if file.Filename != "export_2026-02-28_to_2026-03-01.csv" {
		t.Fatalf("unexpected filename %s", file.Filename)
	}
	rows := readExportCSV(t, file.Body)
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	header := strings.Join(rows[0], ",")
	if header != "DATE,SALES_COUNT,SALES,PRODUCTS,EXPENSES,TOTAL_SALES,TOTAL_EXPENSES,UTILITIES,store_2" {
		t.Fatalf("unexpected header %s", header)
	}
	row := rows[1]
	if row[0] != "2026-03-01" || row[1] != "1" || row[5] != "20.00" || row[6] != "5.00" || row[8] != "20.00" {
		t.Fatalf("unexpected row %v", row)
	}
	if !strings.Contains(row[2], `"productCode":"ABC1"`) || !strings.Contains(row[4], `Alquiler, \"local\"`) {
		t.Fatalf("JSON cells not preserved: %v", row)
	}

	var sales []map[string]any
	if err := json.Unmarshal([]byte(row[2]), &sales); err != nil {
		t.Fatalf("sales cell: %v", err)
	}
	if len(sales) != 1 || len(sales[0]) != 4 || sales[0]["storeId"] != "2" || sales[0]["subGain"] != 20.0 {
		t.Fatalf("expected slim sale projection, got %v", sales)
	}
	if _, leaked := sales[0]["costPrice"]; leaked {
		t.Fatalf("sale cell must not carry prices: %v", sales[0])
	}
	var products []map[string]any
	if err := json.Unmarshal([]byte(row[3]), &products); err != nil {
		t.Fatalf("products cell: %v", err)
	}
	if len(products) != 1 || products[0]["code"] != "ABC1" || products[0]["sellPrice"] != 20.0 {
		t.Fatalf("unexpected products cell %v", products)
	}
	var expenses []map[string]any
	if err := json.Unmarshal([]byte(row[4]), &expenses); err != nil {
		t.Fatalf("expenses cell: %v", err)
	}
	if len(expenses) != 1 || len(expenses[0]) != 2 || expenses[0]["costDaily"] != 5.0 {
		t.Fatalf("unexpected expenses cell %v", expenses)
	}
}

func TestExportEmptyRangeAndBounds(t *testing.T) {
	svc := newTestService()

	file, err := svc.ExportReports(adminCtx(), ExportParams{End: "2026-02-20", Days: 3})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if file.Filename != "export_2026-02-18_to_2026-02-20.csv" {
		t.Fatalf("unexpected filename %s", file.Filename)
	}
	if rows := readExportCSV(t, file.Body); len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}

	file, err = svc.ExportReports(adminCtx(), ExportParams{})
	if err != nil {
		t.Fatalf("default export: %v", err)
	}
	if file.Filename != "export_2026-02-15_to_2026-03-01.csv" {
		t.Fatalf("default range must be 15 days ending today, got %s", file.Filename)
	}

	for _, p := range []ExportParams{
		{End: "2026-03-02"},
		{End: "2026-01-29"},
		{End: "2026-03-01", Days: 16},
		{End: "2026-03-01", Format: "pdf"},
	} {
		if _, err := svc.ExportReports(adminCtx(), p); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("%+v: expected invalid input, got %v", p, err)
		}
	}
}

func TestExportXLSX(t *testing.T) {
	svc := newTestService()
	if _, err := svc.RegisterSale(workerCtx(), domain.RegisterSaleRequest{
		ProductCode: "INK7", StoreID: "1", Quantity: 1, Size: "37", PaymentMethod: "card",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	file, err := svc.ExportReports(adminCtx(), ExportParams{Days: 1, Format: "xlsx"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if file.Filename != "export_2026-03-01_to_2026-03-01.xlsx" {
		t.Fatalf("unexpected filename %s", file.Filename)
	}

	book, err := excelize.OpenReader(bytes.NewReader(file.Body))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "2026-03-01" || rows[1][5] != "23.00" || rows[0][8] != "store_1" {
		t.Fatalf("unexpected workbook rows %v", rows)
	}
}
