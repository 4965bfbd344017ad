package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
	"retailops/backend/internal/service"
	"retailops/backend/internal/store"
)

// Accounts.

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	account, err := a.service.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.service.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *API) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.AccountUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	account, err := a.service.UpdateAccount(r.Context(), r.PathValue("uid"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (a *API) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteAccount(r.Context(), r.PathValue("uid")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sales.

func (a *API) handleRegisterSale(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sale, err := a.service.RegisterSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "sale registered",
		"sale":    sale,
	})
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := service.SaleFilter{
		StoreID:       q.Get("storeId"),
		ProductCode:   q.Get("productCode"),
		PaymentMethod: q.Get("paymentMethod"),
		Date:          q.Get("date"),
	}
	if filter.MinRevenue, err = queryCents(r, "minRevenue"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if filter.MaxRevenue, err = queryCents(r, "maxRevenue"); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := a.service.ListSales(r.Context(), page, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", listCacheHeader)
	writeJSON(w, http.StatusOK, result)
}

// Products.

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := service.ProductFilter{
		Brand: q.Get("brand"),
		Color: q.Get("color"),
		Code:  q.Get("code"),
		Size:  q.Get("size"),
	}
	if raw := strings.TrimSpace(q.Get("inStock")); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("%w: inStock must be true or false", store.ErrInvalidInput))
			return
		}
		filter.InStock = &inStock
	}
	if filter.MinSellPrice, err = queryCents(r, "minSellPrice"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if filter.MaxSellPrice, err = queryCents(r, "maxSellPrice"); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := a.service.ListProducts(r.Context(), page, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", listCacheHeader)
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Expenses.

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := a.service.ListExpenses(r.Context(), r.URL.Query().Get("dateISO"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	expense, err := a.service.CreateExpense(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (a *API) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	expense, err := a.service.UpdateExpense(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// handleDeleteExpense takes dateISO from the query string, falling back to
// a {"dateISO": ...} body as the dashboard sends it.
func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	dateISO := r.URL.Query().Get("dateISO")
	if dateISO == "" && r.ContentLength != 0 {
		var body struct {
			DateISO string `json:"dateISO"`
		}
		if err := decodeLenient(r, &body); err != nil {
			writeServiceError(w, r, err)
			return
		}
		dateISO = body.DateISO
	}
	if err := a.service.DeleteExpense(r.Context(), r.PathValue("id"), dateISO); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Daily reports.

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := a.service.ListReports(r.Context(), q.Get("month"), limit, q.Get("pageToken"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.GetReport(r.Context(), r.PathValue("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	var req domain.ReportUpdateRequest
	if err := decodeLenient(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	report, err := a.service.UpdateReport(r.Context(), r.PathValue("date"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleRecomputeUtilities(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.RecomputeUtilities(r.Context(), r.PathValue("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleEnsureToday(w http.ResponseWriter, r *http.Request) {
	date, created, err := a.service.EnsureToday(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"date": date, "created": created})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	file, err := a.service.ExportReports(r.Context(), service.ExportParams{
		End:    q.Get("end"),
		Days:   days,
		Format: q.Get("format"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

// Employees.

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.service.ListEmployees(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	employee, err := a.service.CreateEmployee(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (a *API) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := a.service.GetEmployee(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (a *API) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	employee, err := a.service.UpdateEmployee(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteEmployee(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := a.service.ListEvents(r.Context(), r.PathValue("id"), q.Get("start"), q.Get("end"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	event, err := a.service.RecordEvent(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteEvent(r.Context(), r.PathValue("id"), r.PathValue("eventId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stores.

func (a *API) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := a.service.ListStores(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (a *API) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req domain.StoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	st, err := a.service.CreateStore(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (a *API) handleGetStore(w http.ResponseWriter, r *http.Request) {
	st, err := a.service.GetStore(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleUpdateStore(w http.ResponseWriter, r *http.Request) {
	var req domain.StoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	st, err := a.service.UpdateStore(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteStore(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Images.

func (a *API) handleSignImageGet(w http.ResponseWriter, r *http.Request) {
	signed, err := a.service.SignImageGet(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (a *API) handleSignImageUpload(generate bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ImageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		signed, err := a.service.SignImageUpload(r.Context(), req, generate)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, signed)
	}
}

func (a *API) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := a.service.DeleteImage(r.Context(), req.Key); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pageParams(r *http.Request) (service.PageParams, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.PageParams{}, err
	}
	q := r.URL.Query()
	return service.PageParams{
		Limit:     limit,
		Cursor:    q.Get("cursor"),
		OrderBy:   q.Get("orderBy"),
		Direction: q.Get("direction"),
	}, nil
}

// queryCents reads a money filter given in minor units.
func queryCents(r *http.Request, name string) (*money.Cents, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer amount in cents", store.ErrInvalidInput, name)
	}
	c := money.Cents(n)
	return &c, nil
}
