package store

import (
	"context"
	"errors"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("unavailable")
)

// SaleInput is a validated sale request. Quantity is positive and
// AppliedPrice zero means "use the product's current sell price".
type SaleInput struct {
	SaleID        string
	ProductCode   string
	StoreID       string
	Size          string
	Quantity      int
	PaymentMethod string
	AppliedPrice  money.Cents
	ReportDate    string
	At            time.Time
}

// ReportPatch carries the allow-listed fields of a manual report update.
// Nil fields are left untouched; map entries overwrite key by key.
type ReportPatch struct {
	StoreTotals     map[string]money.Cents
	TotalSales      *money.Cents
	TotalExpenses   *money.Cents
	Utilities       *money.Cents
	OtherExpenseIDs *[]string
	StoreIDs        *[]string
	At              time.Time
}

type ExpensePatch struct {
	Name      *string
	CostDaily *money.Cents
	DateISO   string
	At        time.Time
}

type AccountPatch struct {
	Username     *string
	PasswordHash *string
	Role         *string
}

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByCodes(ctx context.Context, codes []string) (map[string]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ScanProducts(ctx context.Context, q ProductScan) ([]domain.Product, error)

	RegisterSale(ctx context.Context, in SaleInput) (*domain.Sale, error)
	ScanSales(ctx context.Context, q SaleScan) ([]domain.Sale, error)
	ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)

	GetDailyReport(ctx context.Context, date string) (*domain.DailyReport, error)
	GetDailyReports(ctx context.Context, dates []string) ([]domain.DailyReport, error)
	ListDailyReports(ctx context.Context, q ReportScan) ([]domain.DailyReport, error)
	UpdateDailyReport(ctx context.Context, date string, patch ReportPatch) (*domain.DailyReport, error)
	EnsureDailyReport(ctx context.Context, date string, at time.Time) (bool, error)

	CreateExpense(ctx context.Context, expense domain.OtherExpense) (*domain.OtherExpense, error)
	UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (*domain.OtherExpense, error)
	DeleteExpense(ctx context.Context, id string, dateISO string, at time.Time) error
	GetExpensesByIDs(ctx context.Context, ids []string) ([]domain.OtherExpense, error)

	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	CreateEmployeeEvent(ctx context.Context, event domain.EmployeeEvent) (*domain.EmployeeEvent, error)
	ListEmployeeEvents(ctx context.Context, employeeID string, r domain.EventRange) ([]domain.EmployeeEvent, error)
	DeleteEmployeeEvent(ctx context.Context, employeeID string, eventID string, at time.Time) (*domain.EmployeeEvent, error)

	CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error)
	GetAccount(ctx context.Context, uid string) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, uid string, patch AccountPatch) (*domain.Account, error)
	DeleteAccount(ctx context.Context, uid string) error
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, id string) (*domain.Store, error)
	CreateStore(ctx context.Context, s domain.Store) (*domain.Store, error)
	UpdateStore(ctx context.Context, s domain.Store) (*domain.Store, error)
	DeleteStore(ctx context.Context, id string) error
}

// ContainsString reports whether list holds s.
func ContainsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RemoveString returns list without any occurrence of s.
func RemoveString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
