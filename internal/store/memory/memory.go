package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

// Store keeps every collection in maps behind one mutex. Each mutating
// method holds the write lock for its whole body, which makes the multi-row
// operations (sale, expense) atomic with respect to each other.
type Store struct {
	mu            sync.RWMutex
	products      map[string]domain.Product
	productByCode map[string]string
	sales         map[string]domain.Sale
	reports       map[string]domain.DailyReport
	expenses      map[string]domain.OtherExpense
	employees     map[string]domain.Employee
	events        map[string]map[string]domain.EmployeeEvent
	accounts      map[string]domain.Account
	stores        map[string]domain.Store
}

func New() *Store {
	return &Store{
		products:      make(map[string]domain.Product),
		productByCode: make(map[string]string),
		sales:         make(map[string]domain.Sale),
		reports:       make(map[string]domain.DailyReport),
		expenses:      make(map[string]domain.OtherExpense),
		employees:     make(map[string]domain.Employee),
		events:        make(map[string]map[string]domain.EmployeeEvent),
		accounts:      make(map[string]domain.Account),
		stores:        make(map[string]domain.Store),
	}
}

// NewSeeded returns a store with demo stores and products for local runs.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, st := range []domain.Store{
		{ID: "1", Name: "Tienda Centro", RentMonthly: 300000},
		{ID: "2", Name: "Tienda Norte", RentMonthly: 240000},
	} {
		st.RentDaily = money.Cents(int64(st.RentMonthly) / 30)
		st.Extra = map[string]any{}
		st.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		st.UpdatedAt = st.CreatedAt
		s.stores[st.ID] = st
	}
	for i, p := range []domain.Product{
		{Brand: "Andes", Code: "ABC1", Color: "negro", CostPrice: 1000, SellPrice: 2000, Description: "Zapatilla urbana",
			Sizes: []domain.SizeStock{{Size: "38", Quantity: 5}, {Size: "40", Quantity: 8}}},
		{Brand: "Andes", Code: "ABC2", Color: "blanco", CostPrice: 1500, SellPrice: 3200, Description: "Zapatilla running",
			Sizes: []domain.SizeStock{{Size: "39", Quantity: 4}, {Size: "41", Quantity: 2}}},
		{Brand: "Inka", Code: "INK7", Color: "rojo", CostPrice: 2200, SellPrice: 4500, Description: "Bota de cuero",
			Sizes: []domain.SizeStock{{Size: "37", Quantity: 3}}},
	} {
		p.ID = xid.New("prd")
		p.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		p.UpdatedAt = p.CreatedAt
		s.products[p.ID] = p
		s.productByCode[p.Code] = p.ID
	}
	return s
}

// ---- products ----

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.productByCode[product.Code]; taken {
		return nil, fmt.Errorf("%w: product code %s already exists", store.ErrConflict, product.Code)
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	product = cloneProduct(product)
	s.products[product.ID] = product
	s.productByCode[product.Code] = product.ID
	out := cloneProduct(product)
	return &out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *Store) GetProductsByCodes(_ context.Context, codes []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Product, len(codes))
	for _, code := range codes {
		if id, ok := s.productByCode[code]; ok {
			out[code] = cloneProduct(s.products[id])
		}
	}
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if owner, taken := s.productByCode[product.Code]; taken && owner != product.ID {
		return nil, fmt.Errorf("%w: product code %s already exists", store.ErrConflict, product.Code)
	}
	if current.Code != product.Code {
		delete(s.productByCode, current.Code)
	}
	product.CreatedAt = current.CreatedAt
	product = cloneProduct(product)
	s.products[product.ID] = product
	s.productByCode[product.Code] = product.ID
	out := cloneProduct(product)
	return &out, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	delete(s.productByCode, p.Code)
	return nil
}

func (s *Store) ScanProducts(_ context.Context, q store.ProductScan) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if q.MinSellPrice != nil && p.SellPrice < *q.MinSellPrice {
			continue
		}
		if q.MaxSellPrice != nil && p.SellPrice > *q.MaxSellPrice {
			continue
		}
		if !store.IsAfter(store.ProductSortValue(p, q.OrderBy), p.ID, q.After, q.Desc) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		return store.Less(store.ProductSortValue(rows[i], q.OrderBy), rows[i].ID,
			store.ProductSortValue(rows[j], q.OrderBy), rows[j].ID, q.Desc)
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	for i := range rows {
		rows[i] = cloneProduct(rows[i])
	}
	return rows, nil
}

// ---- sales ----

func (s *Store) RegisterSale(_ context.Context, in store.SaleInput) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.productByCode[in.ProductCode]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, in.ProductCode)
	}
	product := cloneProduct(s.products[id])

	idx := -1
	for i, entry := range product.Sizes {
		if entry.Size == in.Size {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: stock not found for size %s", store.ErrNotFound, in.Size)
	}
	newQty := product.Sizes[idx].Quantity - in.Quantity
	if newQty < 0 {
		return nil, fmt.Errorf("%w: size %s has %d left", store.ErrInsufficientStock, in.Size, product.Sizes[idx].Quantity)
	}

	sale := domain.NewSale(in.SaleID, product, in.StoreID, in.Size, in.Quantity, in.PaymentMethod, in.AppliedPrice, in.At)
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}

	product.Sizes[idx].Quantity = newQty
	product.UpdatedAt = in.At
	s.products[product.ID] = product

	s.sales[sale.ID] = sale

	report, ok := s.reports[in.ReportDate]
	if !ok {
		report = domain.NewDailyReport(in.ReportDate, in.At)
	} else {
		report = cloneReport(report)
	}
	report.ApplySale(sale)
	report.UpdatedAt = in.At
	s.reports[in.ReportDate] = report

	return &sale, nil
}

func (s *Store) ScanSales(_ context.Context, q store.SaleScan) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if q.StoreID != "" && sale.StoreID != q.StoreID {
			continue
		}
		if q.ProductCode != "" && sale.ProductCode != q.ProductCode {
			continue
		}
		if q.PaymentMethodPrefix != "" && !strings.HasPrefix(sale.PaymentMethod, q.PaymentMethodPrefix) {
			continue
		}
		if q.From != nil && sale.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && !sale.Timestamp.Before(*q.To) {
			continue
		}
		if !store.IsAfter(store.SaleSortValue(sale, q.OrderBy), sale.ID, q.After, q.Desc) {
			continue
		}
		rows = append(rows, sale)
	}
	sort.Slice(rows, func(i, j int) bool {
		return store.Less(store.SaleSortValue(rows[i], q.OrderBy), rows[i].ID,
			store.SaleSortValue(rows[j], q.OrderBy), rows[j].ID, q.Desc)
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *Store) ListSalesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Sale, 0, 32)
	for _, sale := range s.sales {
		if sale.Timestamp.Before(from) || !sale.Timestamp.Before(to) {
			continue
		}
		rows = append(rows, sale)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return rows, nil
}

// ---- daily reports ----

func (s *Store) GetDailyReport(_ context.Context, date string) (*domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[date]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneReport(r)
	return &out, nil
}

func (s *Store) GetDailyReports(_ context.Context, dates []string) ([]domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DailyReport, 0, len(dates))
	for _, d := range dates {
		if r, ok := s.reports[d]; ok {
			out = append(out, cloneReport(r))
		}
	}
	return out, nil
}

func (s *Store) ListDailyReports(_ context.Context, q store.ReportScan) ([]domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.DailyReport, 0, len(s.reports))
	for date, r := range s.reports {
		if q.From != "" && date < q.From {
			continue
		}
		if q.To != "" && date >= q.To {
			continue
		}
		if q.Before != "" && date >= q.Before {
			continue
		}
		rows = append(rows, cloneReport(r))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *Store) UpdateDailyReport(_ context.Context, date string, patch store.ReportPatch) (*domain.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[date]
	if !ok {
		report = domain.NewDailyReport(date, patch.At)
	} else {
		report = cloneReport(report)
	}
	report.ApplyPatch(patch.StoreTotals, patch.TotalSales, patch.TotalExpenses, patch.Utilities, patch.OtherExpenseIDs, patch.StoreIDs)
	report.Date = date
	report.UpdatedAt = patch.At
	s.reports[date] = report
	out := cloneReport(report)
	return &out, nil
}

func (s *Store) EnsureDailyReport(_ context.Context, date string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[date]; ok {
		return false, nil
	}
	s.reports[date] = domain.NewDailyReport(date, at)
	return true, nil
}

// ---- expenses ----

func (s *Store) CreateExpense(_ context.Context, expense domain.OtherExpense) (*domain.OtherExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	s.expenses[expense.ID] = expense

	report, ok := s.reports[expense.DateISO]
	if !ok {
		report = domain.NewDailyReport(expense.DateISO, expense.CreatedAt)
	} else {
		report = cloneReport(report)
	}
	report.TotalExpenses += expense.CostDaily
	if !store.ContainsString(report.Meta.OtherExpenseIDs, expense.ID) {
		report.Meta.OtherExpenseIDs = append(report.Meta.OtherExpenseIDs, expense.ID)
	}
	report.UpdatedAt = expense.CreatedAt
	s.reports[expense.DateISO] = report

	out := expense
	return &out, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, patch store.ExpensePatch) (*domain.OtherExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("%w: expense %s", store.ErrNotFound, id)
	}
	report, err := s.expenseReportLocked(expense, patch.DateISO)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		expense.Name = *patch.Name
	}
	delta := money.Cents(0)
	if patch.CostDaily != nil {
		delta = *patch.CostDaily - expense.CostDaily
		expense.CostDaily = *patch.CostDaily
	}
	expense.UpdatedAt = patch.At
	s.expenses[id] = expense

	if delta != 0 {
		report.TotalExpenses += delta
		report.UpdatedAt = patch.At
		s.reports[report.Date] = report
	}

	out := expense
	return &out, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string, dateISO string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense, ok := s.expenses[id]
	if !ok {
		return fmt.Errorf("%w: expense %s", store.ErrNotFound, id)
	}
	report, err := s.expenseReportLocked(expense, dateISO)
	if err != nil {
		return err
	}
	delete(s.expenses, id)

	report.TotalExpenses -= expense.CostDaily
	report.Meta.OtherExpenseIDs = store.RemoveString(report.Meta.OtherExpenseIDs, id)
	report.UpdatedAt = at
	s.reports[report.Date] = report
	return nil
}

// expenseReportLocked returns a copy of the report that owns expense. The
// report is never created here.
func (s *Store) expenseReportLocked(expense domain.OtherExpense, dateISO string) (domain.DailyReport, error) {
	if dateISO != expense.DateISO {
		return domain.DailyReport{}, fmt.Errorf("%w: expense %s belongs to %s, not %s",
			store.ErrInvalidInput, expense.ID, expense.DateISO, dateISO)
	}
	report, ok := s.reports[expense.DateISO]
	if !ok {
		return domain.DailyReport{}, fmt.Errorf("%w: report %s", store.ErrNotFound, expense.DateISO)
	}
	return cloneReport(report), nil
}

func (s *Store) GetExpensesByIDs(_ context.Context, ids []string) ([]domain.OtherExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.OtherExpense, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.expenses[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- employees ----

func (s *Store) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, cloneEmployee(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneEmployee(e)
	return &out, nil
}

func (s *Store) CreateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if employee.ID == "" {
		employee.ID = xid.New("emp")
	}
	s.employees[employee.ID] = cloneEmployee(employee)
	out := cloneEmployee(employee)
	return &out, nil
}

func (s *Store) UpdateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.employees[employee.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	employee.CreatedAt = current.CreatedAt
	employee.ResignationDate = current.ResignationDate
	s.employees[employee.ID] = cloneEmployee(employee)
	out := cloneEmployee(employee)
	return &out, nil
}

func (s *Store) DeleteEmployee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.employees, id)
	delete(s.events, id)
	return nil
}

func (s *Store) CreateEmployeeEvent(_ context.Context, event domain.EmployeeEvent) (*domain.EmployeeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	employee, ok := s.employees[event.EmployeeID]
	if !ok {
		return nil, fmt.Errorf("%w: employee %s", store.ErrNotFound, event.EmployeeID)
	}
	if event.ID == "" {
		event.ID = xid.New("evt")
	}
	if s.events[event.EmployeeID] == nil {
		s.events[event.EmployeeID] = make(map[string]domain.EmployeeEvent)
	}
	s.events[event.EmployeeID][event.ID] = event

	if event.Type == domain.EventResignation {
		date := event.Date
		employee.ResignationDate = &date
		employee.UpdatedAt = event.CreatedAt
		s.employees[employee.ID] = employee
	}
	out := event
	return &out, nil
}

func (s *Store) ListEmployeeEvents(_ context.Context, employeeID string, r domain.EventRange) ([]domain.EmployeeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.employees[employeeID]; !ok {
		return nil, fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	out := make([]domain.EmployeeEvent, 0, len(s.events[employeeID]))
	for _, ev := range s.events[employeeID] {
		if r.Start != "" && ev.Date < r.Start {
			continue
		}
		if r.End != "" && ev.Date > r.End {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].ID > out[j].ID
		}
		return out[i].Date > out[j].Date
	})
	return out, nil
}

func (s *Store) DeleteEmployeeEvent(_ context.Context, employeeID string, eventID string, at time.Time) (*domain.EmployeeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[employeeID][eventID]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", store.ErrNotFound, eventID)
	}
	delete(s.events[employeeID], eventID)

	if ev.Type == domain.EventResignation {
		if employee, ok := s.employees[employeeID]; ok && employee.ResignationDate != nil && *employee.ResignationDate == ev.Date {
			employee.ResignationDate = nil
			employee.UpdatedAt = at
			s.employees[employeeID] = employee
		}
	}
	return &ev, nil
}

// ---- accounts ----

func (s *Store) CreateAccount(_ context.Context, account domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return nil, fmt.Errorf("%w: username %s already in use", store.ErrConflict, account.Username)
		}
	}
	if account.UID == "" {
		account.UID = xid.New("usr")
	}
	s.accounts[account.UID] = account
	out := account
	return &out, nil
}

func (s *Store) GetAccount(_ context.Context, uid string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Username == username {
			out := a
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateAccount(_ context.Context, uid string, patch store.AccountPatch) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Username != nil {
		for id, existing := range s.accounts {
			if id != uid && existing.Username == *patch.Username {
				return nil, fmt.Errorf("%w: username %s already in use", store.ErrConflict, *patch.Username)
			}
		}
		a.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}
	s.accounts[uid] = a
	out := a
	return &out, nil
}

func (s *Store) DeleteAccount(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[uid]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, uid)
	return nil
}

func (s *Store) ListAccounts(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// ---- stores ----

func (s *Store) ListStores(_ context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		out = append(out, cloneStore(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetStore(_ context.Context, id string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneStore(st)
	return &out, nil
}

func (s *Store) CreateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = xid.New("sto")
	}
	if _, exists := s.stores[st.ID]; exists {
		return nil, fmt.Errorf("%w: store %s already exists", store.ErrConflict, st.ID)
	}
	s.stores[st.ID] = cloneStore(st)
	out := cloneStore(st)
	return &out, nil
}

func (s *Store) UpdateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.stores[st.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	st.CreatedAt = current.CreatedAt
	s.stores[st.ID] = cloneStore(st)
	out := cloneStore(st)
	return &out, nil
}

func (s *Store) DeleteStore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.stores, id)
	return nil
}

func cloneProduct(p domain.Product) domain.Product {
	sizes := make([]domain.SizeStock, len(p.Sizes))
	copy(sizes, p.Sizes)
	p.Sizes = sizes
	return p
}

func cloneReport(r domain.DailyReport) domain.DailyReport {
	out := r
	out.StoreTotals = cloneCents(r.StoreTotals)
	out.PaymentTotals = cloneCents(r.PaymentTotals)
	out.StorePaymentTotals = make(map[string]map[string]money.Cents, len(r.StorePaymentTotals))
	for k, v := range r.StorePaymentTotals {
		out.StorePaymentTotals[k] = cloneCents(v)
	}
	out.Meta.OtherExpenseIDs = append([]string{}, r.Meta.OtherExpenseIDs...)
	out.Meta.StoreIDs = append([]string{}, r.Meta.StoreIDs...)
	return out
}

func cloneCents(m map[string]money.Cents) map[string]money.Cents {
	out := make(map[string]money.Cents, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEmployee(e domain.Employee) domain.Employee {
	e.Extra = cloneAny(e.Extra)
	if e.DaysToPay != nil {
		v := *e.DaysToPay
		e.DaysToPay = &v
	}
	if e.ResignationDate != nil {
		v := *e.ResignationDate
		e.ResignationDate = &v
	}
	return e
}

func cloneStore(st domain.Store) domain.Store {
	st.Extra = cloneAny(st.Extra)
	return st
}

func cloneAny(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
