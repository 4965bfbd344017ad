package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
)

// Row types mirror the table columns for scany. JSONB columns are read as
// raw bytes and decoded here; money inside JSONB is stored as integer cents.

const productColumns = "id, brand, code, color, cost_price_cents, sell_price_cents, description, sizes, image_key, created_at, updated_at"

type productRow struct {
	ID          string    `db:"id"`
	Brand       string    `db:"brand"`
	Code        string    `db:"code"`
	Color       string    `db:"color"`
	CostPrice   int64     `db:"cost_price_cents"`
	SellPrice   int64     `db:"sell_price_cents"`
	Description string    `db:"description"`
	Sizes       []byte    `db:"sizes"`
	ImageKey    string    `db:"image_key"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r productRow) toDomain() (domain.Product, error) {
	p := domain.Product{
		ID:          r.ID,
		Brand:       r.Brand,
		Code:        r.Code,
		Color:       r.Color,
		CostPrice:   money.Cents(r.CostPrice),
		SellPrice:   money.Cents(r.SellPrice),
		Description: r.Description,
		ImageKey:    r.ImageKey,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		Sizes:       []domain.SizeStock{},
	}
	if len(r.Sizes) > 0 {
		if err := json.Unmarshal(r.Sizes, &p.Sizes); err != nil {
			return p, fmt.Errorf("decode sizes of %s: %w", r.ID, err)
		}
	}
	return p, nil
}

const saleColumns = "id, product_code, store_id, quantity, size, cost_price_cents, original_sell_price_cents, applied_sell_price_cents, sub_gain_cents, revenue_cents, payment_method, sold_at"

type saleRow struct {
	ID                string    `db:"id"`
	ProductCode       string    `db:"product_code"`
	StoreID           string    `db:"store_id"`
	Quantity          int       `db:"quantity"`
	Size              string    `db:"size"`
	CostPrice         int64     `db:"cost_price_cents"`
	OriginalSellPrice int64     `db:"original_sell_price_cents"`
	AppliedSellPrice  int64     `db:"applied_sell_price_cents"`
	SubGain           int64     `db:"sub_gain_cents"`
	Revenue           int64     `db:"revenue_cents"`
	PaymentMethod     string    `db:"payment_method"`
	SoldAt            time.Time `db:"sold_at"`
}

func (r saleRow) toDomain() domain.Sale {
	return domain.Sale{
		ID:                r.ID,
		ProductCode:       r.ProductCode,
		StoreID:           r.StoreID,
		Quantity:          r.Quantity,
		Size:              r.Size,
		CostPrice:         money.Cents(r.CostPrice),
		OriginalSellPrice: money.Cents(r.OriginalSellPrice),
		AppliedSellPrice:  money.Cents(r.AppliedSellPrice),
		SubGain:           money.Cents(r.SubGain),
		Revenue:           money.Cents(r.Revenue),
		PaymentMethod:     r.PaymentMethod,
		Timestamp:         r.SoldAt.UTC(),
	}
}

const reportColumns = "date, store_totals, total_sales, total_expenses, payment_totals, store_payment_totals, utilities, meta, created_at, updated_at"

type reportRow struct {
	Date               string    `db:"date"`
	StoreTotals        []byte    `db:"store_totals"`
	TotalSales         int64     `db:"total_sales"`
	TotalExpenses      int64     `db:"total_expenses"`
	PaymentTotals      []byte    `db:"payment_totals"`
	StorePaymentTotals []byte    `db:"store_payment_totals"`
	Utilities          int64     `db:"utilities"`
	Meta               []byte    `db:"meta"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r reportRow) toDomain() (domain.DailyReport, error) {
	report := domain.NewDailyReport(r.Date, r.CreatedAt.UTC())
	report.UpdatedAt = r.UpdatedAt.UTC()
	report.TotalSales = money.Cents(r.TotalSales)
	report.TotalExpenses = money.Cents(r.TotalExpenses)
	report.Utilities = money.Cents(r.Utilities)

	var err error
	if report.StoreTotals, err = decodeCentsMap(r.StoreTotals); err != nil {
		return report, fmt.Errorf("decode store totals of %s: %w", r.Date, err)
	}
	if report.PaymentTotals, err = decodeCentsMap(r.PaymentTotals); err != nil {
		return report, fmt.Errorf("decode payment totals of %s: %w", r.Date, err)
	}
	nested := map[string]map[string]int64{}
	if len(r.StorePaymentTotals) > 0 {
		if err := json.Unmarshal(r.StorePaymentTotals, &nested); err != nil {
			return report, fmt.Errorf("decode store payment totals of %s: %w", r.Date, err)
		}
	}
	for storeID, methods := range nested {
		inner := make(map[string]money.Cents, len(methods))
		for method, v := range methods {
			inner[method] = money.Cents(v)
		}
		report.StorePaymentTotals[storeID] = inner
	}
	if len(r.Meta) > 0 {
		if err := json.Unmarshal(r.Meta, &report.Meta); err != nil {
			return report, fmt.Errorf("decode meta of %s: %w", r.Date, err)
		}
	}
	if report.Meta.OtherExpenseIDs == nil {
		report.Meta.OtherExpenseIDs = []string{}
	}
	if report.Meta.StoreIDs == nil {
		report.Meta.StoreIDs = []string{}
	}
	return report, nil
}

func decodeCentsMap(raw []byte) (map[string]money.Cents, error) {
	out := map[string]money.Cents{}
	if len(raw) == 0 {
		return out, nil
	}
	var plain map[string]int64
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	for k, v := range plain {
		out[k] = money.Cents(v)
	}
	return out, nil
}

// encodeCentsMap writes integer cents, not the major-unit JSON form of
// money.Cents.
func encodeCentsMap(m map[string]money.Cents) (string, error) {
	plain := make(map[string]int64, len(m))
	for k, v := range m {
		plain[k] = int64(v)
	}
	b, err := json.Marshal(plain)
	return string(b), err
}

func encodeNestedCents(m map[string]map[string]money.Cents) (string, error) {
	plain := make(map[string]map[string]int64, len(m))
	for k, inner := range m {
		row := make(map[string]int64, len(inner))
		for method, v := range inner {
			row[method] = int64(v)
		}
		plain[k] = row
	}
	b, err := json.Marshal(plain)
	return string(b), err
}

const expenseColumns = "id, name, cost_daily_cents, date_iso, created_at, updated_at"

type expenseRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CostDaily int64     `db:"cost_daily_cents"`
	DateISO   string    `db:"date_iso"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r expenseRow) toDomain() domain.OtherExpense {
	return domain.OtherExpense{
		ID:        r.ID,
		Name:      r.Name,
		CostDaily: money.Cents(r.CostDaily),
		DateISO:   r.DateISO,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const employeeColumns = "id, name, salary_monthly_cents, salary_daily_cents, salary_hourly_cents, days_per_week, hours_per_day, days_to_pay, resignation_date, extra, created_at, updated_at"

type employeeRow struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	SalaryMonthly   int64           `db:"salary_monthly_cents"`
	SalaryDaily     int64           `db:"salary_daily_cents"`
	SalaryHourly    int64           `db:"salary_hourly_cents"`
	DaysPerWeek     float64         `db:"days_per_week"`
	HoursPerDay     float64         `db:"hours_per_day"`
	DaysToPay       sql.NullFloat64 `db:"days_to_pay"`
	ResignationDate sql.NullString  `db:"resignation_date"`
	Extra           []byte          `db:"extra"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r employeeRow) toDomain() (domain.Employee, error) {
	e := domain.Employee{
		ID:            r.ID,
		Name:          r.Name,
		SalaryMonthly: money.Cents(r.SalaryMonthly),
		SalaryDaily:   money.Cents(r.SalaryDaily),
		SalaryHourly:  money.Cents(r.SalaryHourly),
		DaysPerWeek:   r.DaysPerWeek,
		HoursPerDay:   r.HoursPerDay,
		Extra:         map[string]any{},
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.DaysToPay.Valid {
		v := r.DaysToPay.Float64
		e.DaysToPay = &v
	}
	if r.ResignationDate.Valid {
		v := r.ResignationDate.String
		e.ResignationDate = &v
	}
	if len(r.Extra) > 0 {
		if err := json.Unmarshal(r.Extra, &e.Extra); err != nil {
			return e, fmt.Errorf("decode extra of %s: %w", r.ID, err)
		}
	}
	return e, nil
}

const eventColumns = "id, employee_id, type, date, hours, multiplier, amount_cents, note, created_at"

type eventRow struct {
	ID         string          `db:"id"`
	EmployeeID string          `db:"employee_id"`
	Type       string          `db:"type"`
	Date       string          `db:"date"`
	Hours      sql.NullFloat64 `db:"hours"`
	Multiplier sql.NullFloat64 `db:"multiplier"`
	Amount     int64           `db:"amount_cents"`
	Note       string          `db:"note"`
	CreatedAt  time.Time       `db:"created_at"`
}

func (r eventRow) toDomain() domain.EmployeeEvent {
	ev := domain.EmployeeEvent{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Type:       r.Type,
		Date:       r.Date,
		Amount:     money.Cents(r.Amount),
		Note:       r.Note,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if r.Hours.Valid {
		v := r.Hours.Float64
		ev.Hours = &v
	}
	if r.Multiplier.Valid {
		v := r.Multiplier.Float64
		ev.Multiplier = &v
	}
	return ev
}

const accountColumns = "uid, username, password_hash, role, created_at"

type accountRow struct {
	UID          string    `db:"uid"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		UID:          r.UID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

const storeColumns = "id, name, rent_monthly_cents, rent_daily_cents, extra, created_at, updated_at"

type storeRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	RentMonthly int64     `db:"rent_monthly_cents"`
	RentDaily   int64     `db:"rent_daily_cents"`
	Extra       []byte    `db:"extra"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r storeRow) toDomain() (domain.Store, error) {
	st := domain.Store{
		ID:          r.ID,
		Name:        r.Name,
		RentMonthly: money.Cents(r.RentMonthly),
		RentDaily:   money.Cents(r.RentDaily),
		Extra:       map[string]any{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if len(r.Extra) > 0 {
		if err := json.Unmarshal(r.Extra, &st.Extra); err != nil {
			return st, fmt.Errorf("decode extra of store %s: %w", r.ID, err)
		}
	}
	return st, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ptrFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func ptrString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
