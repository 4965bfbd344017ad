package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"retailops/backend/internal/cache"
	"retailops/backend/internal/domain"
	"retailops/backend/internal/lima"
	"retailops/backend/internal/service"
	"retailops/backend/internal/store/memory"
)

// newTestAPI builds the full stack on the seeded memory store with an admin
// and a worker account.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, service.Options{Cache: cache.NewMemoryListingCache()})
	ctx := context.Background()
	if _, err := svc.EnsureAdmin(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, err := svc.Signup(service.SystemContext(ctx), domain.SignupRequest{Username: "maria", Password: "worker123"}); err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	auth := NewAuthManager("test-secret-key", time.Hour, svc)
	return New(svc, auth, "*")
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	payload, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func call(h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := call(handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin(t *testing.T) {
	handler := newTestAPI(t).Handler()

	if token := login(t, handler, "admin", "admin123"); token == "" {
		t.Fatalf("expected access token")
	}
	rec := call(handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on wrong password, got %d", rec.Code)
	}
	rec = call(handler, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"username": "admin", "password": "admin123", "pin": "1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on unknown field, got %d", rec.Code)
	}
}

func TestRoleGating(t *testing.T) {
	handler := newTestAPI(t).Handler()
	worker := login(t, handler, "maria", "worker123")

	if rec := call(handler, http.MethodGet, "/api/v1/products", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := call(handler, http.MethodGet, "/api/v1/products", "not-a-token", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
	if rec := call(handler, http.MethodGet, "/api/v1/products", worker, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected worker to list products, got %d", rec.Code)
	}
	if rec := call(handler, http.MethodGet, "/api/v1/stores", worker, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected worker to list stores, got %d", rec.Code)
	}
	for _, path := range []string{"/api/v1/daily/reports", "/api/v1/employees", "/api/v1/accounts", "/api/v1/report/export"} {
		if rec := call(handler, http.MethodGet, path, worker, nil); rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for worker, got %d", path, rec.Code)
		}
	}
	if rec := call(handler, http.MethodPost, "/api/v1/products", worker, map[string]any{"brand": "x"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected worker product create to be forbidden, got %d", rec.Code)
	}
}

func TestRegisterSaleFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")
	worker := login(t, handler, "maria", "worker123")

	rec := call(handler, http.MethodPost, "/api/v1/sales/registerSale", worker, map[string]any{
		"productCode": "abc1", "storeId": "1", "quantity": 2, "size": "38", "paymentMethod": "Cash",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	registered := decode[struct {
		Message string      `json:"message"`
		Sale    domain.Sale `json:"sale"`
	}](t, rec)
	sale := registered.Sale
	if registered.Message == "" {
		t.Fatalf("expected a confirmation message")
	}
	if sale.ProductCode != "ABC1" || sale.PaymentMethod != "cash" || sale.Revenue != 4000 {
		t.Fatalf("unexpected sale %+v", sale)
	}

	rec = call(handler, http.MethodPost, "/api/v1/sales/registerSale", worker, map[string]any{
		"productCode": "ABC1", "storeId": "1", "quantity": 4, "size": "38", "paymentMethod": "cash",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected insufficient stock to be 400, got %d", rec.Code)
	}
	rec = call(handler, http.MethodPost, "/api/v1/sales/registerSale", worker, map[string]any{
		"productCode": "ABC1", "storeId": "1", "quantity": 1, "size": "44", "paymentMethod": "cash",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unknown size to be 404, got %d", rec.Code)
	}

	rec = call(handler, http.MethodGet, "/api/v1/sales?productCode=abc1&limit=5", worker, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list sales: %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=30" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	page := decode[domain.SalePage](t, rec)
	if len(page.Sales) != 1 || page.Meta.HasNext {
		t.Fatalf("unexpected sales page %+v", page)
	}

	rec = call(handler, http.MethodGet, "/api/v1/daily/reports/"+lima.DateOf(sale.Timestamp), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get report: %d", rec.Code)
	}
	report := decode[domain.DailyReport](t, rec)
	// Report totals accumulate gain: (20.00 - 10.00) * 2.
	if report.TotalSales != 2000 || report.StoreTotals["1"] != 2000 || report.PaymentTotals["cash"] != 4000 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestListProductsQueryParsing(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := call(handler, http.MethodGet, "/api/v1/products?brand=andes&orderBy=sellPrice&direction=asc&limit=1", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list products: %d (%s)", rec.Code, rec.Body.String())
	}
	page := decode[domain.ProductPage](t, rec)
	if len(page.Products) != 1 || page.Products[0].Code != "ABC1" || !page.Meta.HasNext || page.Meta.NextCursor == nil {
		t.Fatalf("unexpected first page %+v", page)
	}

	rec = call(handler, http.MethodGet, "/api/v1/products?brand=andes&orderBy=sellPrice&direction=asc&limit=1&cursor="+url.QueryEscape(*page.Meta.NextCursor), admin, nil)
	page = decode[domain.ProductPage](t, rec)
	if len(page.Products) != 1 || page.Products[0].Code != "ABC2" {
		t.Fatalf("unexpected second page %+v", page)
	}

	rec = call(handler, http.MethodGet, "/api/v1/products?minSellPrice=4000", admin, nil)
	page = decode[domain.ProductPage](t, rec)
	if len(page.Products) != 1 || page.Products[0].Code != "INK7" {
		t.Fatalf("minSellPrice is in cents, got %+v", page.Products)
	}

	for _, q := range []string{"orderBy=nope", "limit=ten", "inStock=maybe", "minSellPrice=12.5", "cursor=not-a-cursor!"} {
		if rec := call(handler, http.MethodGet, "/api/v1/products?"+q, admin, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestProductCRUD(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := call(handler, http.MethodPost, "/api/v1/products", admin, map[string]any{
		"brand": "Inka", "code": "ink9", "color": "azul", "costPrice": 10.5, "sellPrice": "21.00", "description": "Bota",
		"sizes": []map[string]any{{"size": "40", "quantity": 3}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d (%s)", rec.Code, rec.Body.String())
	}
	created := decode[domain.Product](t, rec)
	if created.Code != "INK9" || created.CostPrice != 1050 || created.SellPrice != 2100 {
		t.Fatalf("unexpected product %+v", created)
	}

	if rec := call(handler, http.MethodPost, "/api/v1/products", admin, map[string]any{
		"brand": "Inka", "code": "INK9", "color": "azul", "costPrice": 1, "sellPrice": 2, "description": "Otra",
		"sizes": []map[string]any{{"size": 38, "quantity": 1}},
	}); rec.Code != http.StatusConflict {
		t.Fatalf("expected duplicate code to be 409, got %d", rec.Code)
	}

	rec = call(handler, http.MethodPut, "/api/v1/products/"+created.ID, admin, map[string]any{"color": "verde"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d (%s)", rec.Code, rec.Body.String())
	}
	if updated := decode[domain.Product](t, rec); updated.Color != "verde" {
		t.Fatalf("expected color update, got %+v", updated)
	}

	if rec := call(handler, http.MethodDelete, "/api/v1/products/"+created.ID, admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := call(handler, http.MethodGet, "/api/v1/products/"+created.ID, admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestDailyEnsureAndExport(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := call(handler, http.MethodPost, "/api/v1/daily/ensure", admin, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first ensure: %d (%s)", rec.Code, rec.Body.String())
	}
	first := decode[map[string]any](t, rec)
	if first["created"] != true {
		t.Fatalf("expected created true, got %v", first)
	}
	rec = call(handler, http.MethodPost, "/api/v1/daily/ensure", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second ensure: %d", rec.Code)
	}

	rec = call(handler, http.MethodGet, "/api/v1/report/export?days=3", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="export_`) {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "DATE,SALES_COUNT") {
		t.Fatalf("expected CSV header in body")
	}

	if rec := call(handler, http.MethodGet, "/api/v1/report/export?days=40", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too many days, got %d", rec.Code)
	}
}

func TestExpenseEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")
	const day = "2026-02-27"

	if rec := call(handler, http.MethodGet, "/api/v1/expenses?dateISO="+day, admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a report, got %d", rec.Code)
	}
	rec := call(handler, http.MethodPost, "/api/v1/expenses", admin, map[string]any{"name": "Luz", "costDaily": 12.5, "dateISO": day})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: %d (%s)", rec.Code, rec.Body.String())
	}
	expense := decode[domain.OtherExpense](t, rec)

	rec = call(handler, http.MethodGet, "/api/v1/daily/reports/"+day, admin, nil)
	if report := decode[domain.DailyReport](t, rec); report.TotalExpenses != 1250 {
		t.Fatalf("expected expense total 12.50, got %s", report.TotalExpenses)
	}

	if rec := call(handler, http.MethodDelete, "/api/v1/expenses/"+expense.ID+"?dateISO="+day, admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete expense: %d", rec.Code)
	}

	rec = call(handler, http.MethodPost, "/api/v1/expenses", admin, map[string]any{"name": "Agua", "costDaily": "3.00", "dateISO": day})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create second expense: %d (%s)", rec.Code, rec.Body.String())
	}
	second := decode[domain.OtherExpense](t, rec)
	if rec := call(handler, http.MethodDelete, "/api/v1/expenses/"+second.ID, admin, map[string]string{"dateISO": "2026-02-28"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected delete against another day to be 400, got %d", rec.Code)
	}
	if rec := call(handler, http.MethodDelete, "/api/v1/expenses/"+second.ID, admin, map[string]string{"dateISO": day}); rec.Code != http.StatusNoContent {
		t.Fatalf("delete expense with body date: %d (%s)", rec.Code, rec.Body.String())
	}
	rec = call(handler, http.MethodGet, "/api/v1/daily/reports/"+day, admin, nil)
	if report := decode[domain.DailyReport](t, rec); report.TotalExpenses != 0 || len(report.Meta.OtherExpenseIDs) != 0 {
		t.Fatalf("expected expenses cleared, got %+v", report)
	}
}

func TestCreateProductRejectsOverflowingAmount(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := call(handler, http.MethodPost, "/api/v1/products", admin, map[string]any{
		"brand": "Andes", "code": "BIG1", "color": "negro", "description": "x",
		"costPrice": 1, "sellPrice": json.Number("100000000000000000000"),
		"sizes": []map[string]any{{"size": "40", "quantity": 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an amount beyond int64 cents, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestImagesUnavailableWithoutStorage(t *testing.T) {
	handler := newTestAPI(t).Handler()
	admin := login(t, handler, "admin", "admin123")

	rec := call(handler, http.MethodGet, "/api/v1/images?key=images/a.jpg", admin, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without object storage, got %d", rec.Code)
	}
}
