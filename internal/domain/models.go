package domain

import (
	"time"

	"retailops/backend/internal/money"
)

const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

const (
	EventExtraDay    = "extra_day"
	EventOvertime    = "overtime"
	EventResignation = "resignation"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UID      string
	Username string
	Role     string
}

type SizeStock struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type Product struct {
	ID          string      `json:"id"`
	Brand       string      `json:"brand"`
	Code        string      `json:"code"`
	Color       string      `json:"color"`
	CostPrice   money.Cents `json:"costPrice"`
	SellPrice   money.Cents `json:"sellPrice"`
	Description string      `json:"description"`
	Sizes       []SizeStock `json:"sizes"`
	ImageKey    string      `json:"imageKey"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Sale is immutable once written.
type Sale struct {
	ID                string      `json:"id"`
	ProductCode       string      `json:"productCode"`
	StoreID           string      `json:"storeId"`
	Quantity          int         `json:"quantity"`
	Size              string      `json:"size"`
	CostPrice         money.Cents `json:"costPrice"`
	OriginalSellPrice money.Cents `json:"originalSellPrice"`
	AppliedSellPrice  money.Cents `json:"appliedSellPrice"`
	SubGain           money.Cents `json:"subGain"`
	Revenue           money.Cents `json:"revenue"`
	PaymentMethod     string      `json:"paymentMethod"`
	Timestamp         time.Time   `json:"timestamp"`
}

type ReportMeta struct {
	OtherExpenseIDs []string `json:"otherExpenseIds"`
	StoreIDs        []string `json:"storeIds"`
}

// DailyReport aggregates one Lima civil day. TotalSales and StoreTotals hold
// gain (applied - cost); PaymentTotals and StorePaymentTotals hold revenue.
type DailyReport struct {
	Date               string                            `json:"date"`
	StoreTotals        map[string]money.Cents            `json:"storeTotals"`
	TotalSales         money.Cents                       `json:"totalSales"`
	TotalExpenses      money.Cents                       `json:"totalExpenses"`
	PaymentTotals      map[string]money.Cents            `json:"paymentTotals"`
	StorePaymentTotals map[string]map[string]money.Cents `json:"storePaymentTotals"`
	Utilities          money.Cents                       `json:"utilities"`
	Meta               ReportMeta                        `json:"meta"`
	CreatedAt          time.Time                         `json:"createdAt"`
	UpdatedAt          time.Time                         `json:"updatedAt"`
}

// NewDailyReport is the initial value every report starts from.
func NewDailyReport(date string, at time.Time) DailyReport {
	return DailyReport{
		Date:               date,
		StoreTotals:        map[string]money.Cents{},
		PaymentTotals:      map[string]money.Cents{},
		StorePaymentTotals: map[string]map[string]money.Cents{},
		Meta:               ReportMeta{OtherExpenseIDs: []string{}, StoreIDs: []string{}},
		CreatedAt:          at,
		UpdatedAt:          at,
	}
}

type OtherExpense struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CostDaily money.Cents `json:"costDaily"`
	DateISO   string      `json:"dateISO"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Employee struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	SalaryMonthly   money.Cents    `json:"salaryMonthly"`
	SalaryDaily     money.Cents    `json:"salaryDaily"`
	SalaryHourly    money.Cents    `json:"salaryHourly"`
	DaysPerWeek     float64        `json:"daysPerWeek"`
	HoursPerDay     float64        `json:"hoursPerDay"`
	DaysToPay       *float64       `json:"daysToPay"`
	ResignationDate *string        `json:"resignationDate,omitempty"`
	Extra           map[string]any `json:"extra"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type EmployeeEvent struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employeeId"`
	Type       string      `json:"type"`
	Date       string      `json:"date"`
	Hours      *float64    `json:"hours"`
	Multiplier *float64    `json:"multiplier"`
	Amount     money.Cents `json:"amount"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type Account struct {
	UID          string    `json:"uid"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Store struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	RentMonthly money.Cents    `json:"rentMonthly"`
	RentDaily   money.Cents    `json:"rentDaily"`
	Extra       map[string]any `json:"extra"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type ListMeta struct {
	Limit      int     `json:"limit"`
	NextCursor *string `json:"nextCursor"`
	HasNext    bool    `json:"hasNext"`
	Total      *int    `json:"total"`
}

type ProductPage struct {
	Meta     ListMeta  `json:"meta"`
	Products []Product `json:"products"`
}

type SalePage struct {
	Meta  ListMeta `json:"meta"`
	Sales []Sale   `json:"sales"`
}

type ReportPage struct {
	Count         int           `json:"count"`
	NextPageToken *string       `json:"nextPageToken"`
	Items         []DailyReport `json:"items"`
}
