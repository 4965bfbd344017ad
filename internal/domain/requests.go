package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"retailops/backend/internal/money"
)

// FlexString accepts a JSON string or number. Store ids and sizes arrive as
// either from the dashboard.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*f = FlexString(n.String())
	}
	return nil
}

type ProductCreateRequest struct {
	Brand       string       `json:"brand" validate:"max=100"`
	Code        string       `json:"code" validate:"required,max=100"`
	Color       string       `json:"color" validate:"required,max=50"`
	CostPrice   *money.Cents `json:"costPrice" validate:"required,gte=0"`
	SellPrice   *money.Cents `json:"sellPrice" validate:"required,gte=0"`
	Description string       `json:"description" validate:"required"`
	Sizes       []SizeInput  `json:"sizes" validate:"required,min=1,max=200,dive"`
	ImageKey    string       `json:"imageKey"`
}

type SizeInput struct {
	Size     FlexString `json:"size" validate:"required"`
	Quantity int        `json:"quantity" validate:"gte=0"`
}

// SizesPatch records whether "sizes" was present in an update body. A JSON
// null clears the ladder.
type SizesPatch struct {
	Set   bool
	Sizes []SizeInput
}

func (p *SizesPatch) UnmarshalJSON(data []byte) error {
	p.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		p.Sizes = nil
		return nil
	}
	return json.Unmarshal(data, &p.Sizes)
}

type ProductUpdateRequest struct {
	Brand       *string      `json:"brand"`
	Code        *string      `json:"code"`
	Color       *string      `json:"color"`
	CostPrice   *money.Cents `json:"costPrice" validate:"omitempty,gte=0"`
	SellPrice   *money.Cents `json:"sellPrice" validate:"omitempty,gte=0"`
	Description *string      `json:"description"`
	Sizes       SizesPatch   `json:"sizes"`
	ImageKey    *string      `json:"imageKey"`
}

func (r ProductUpdateRequest) Empty() bool {
	return r.Brand == nil && r.Code == nil && r.Color == nil && r.CostPrice == nil &&
		r.SellPrice == nil && r.Description == nil && !r.Sizes.Set && r.ImageKey == nil
}

type RegisterSaleRequest struct {
	ProductCode   string       `json:"productCode" validate:"required"`
	StoreID       FlexString   `json:"storeId" validate:"required"`
	Quantity      int          `json:"quantity" validate:"required,gt=0"`
	Size          FlexString   `json:"size" validate:"required"`
	PaymentMethod string       `json:"paymentMethod" validate:"required"`
	AppliedPrice  *money.Cents `json:"appliedPrice" validate:"omitempty,gte=0"`
}

type ExpenseCreateRequest struct {
	Name      string       `json:"name" validate:"required"`
	CostDaily *money.Cents `json:"costDaily" validate:"required,gte=0"`
	DateISO   string       `json:"dateISO" validate:"required"`
}

type ExpenseUpdateRequest struct {
	Name      *string      `json:"name"`
	CostDaily *money.Cents `json:"costDaily" validate:"omitempty,gte=0"`
	DateISO   string       `json:"dateISO" validate:"required"`
}

// ReportUpdateRequest is the allow-list of report fields a client may set.
type ReportUpdateRequest struct {
	StoreTotals   map[string]money.Cents `json:"storeTotals"`
	TotalSales    *money.Cents           `json:"totalSales"`
	TotalExpenses *money.Cents           `json:"totalExpenses"`
	Utilities     *money.Cents           `json:"utilities"`
	Meta          *ReportMetaPatch       `json:"meta"`
	Date          *string                `json:"date"`
}

type ReportMetaPatch struct {
	OtherExpenseIDs *[]string `json:"otherExpenseIds"`
	StoreIDs        *[]string `json:"storeIds"`
}

type EmployeeRequest struct {
	Name          *string        `json:"name" validate:"omitempty,min=1,max=200"`
	SalaryMonthly *money.Cents   `json:"salaryMonthly" validate:"omitempty,gte=0"`
	DaysPerWeek   *float64       `json:"daysPerWeek" validate:"omitempty,gte=0,lte=7"`
	HoursPerDay   *float64       `json:"hoursPerDay" validate:"omitempty,gte=0,lte=24"`
	DaysToPay     *float64       `json:"daysToPay" validate:"omitempty,gte=0"`
	Extra         map[string]any `json:"extra"`
}

type EmployeeEventRequest struct {
	Type       string   `json:"type" validate:"required,oneof=extra_day overtime resignation"`
	Date       string   `json:"date" validate:"required"`
	Hours      *float64 `json:"hours" validate:"omitempty,gte=0"`
	Multiplier *float64 `json:"multiplier" validate:"omitempty,gt=0"`
	Note       string   `json:"note" validate:"max=500"`
}

type EventRange struct {
	Start string
	End   string
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=worker admin"`
}

type AccountUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
	Role     *string `json:"role" validate:"omitempty,oneof=worker admin"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type StoreRequest struct {
	ID          FlexString     `json:"id"`
	Name        *string        `json:"name" validate:"omitempty,max=200"`
	RentMonthly *money.Cents   `json:"rentMonthly" validate:"omitempty,gte=0"`
	Extra       map[string]any `json:"extra"`
}

type ImageRequest struct {
	Key         string `json:"key"`
	Ext         string `json:"ext"`
	ContentType string `json:"contentType"`
	ExpiresIn   int    `json:"expiresIn" validate:"omitempty,gte=1,lte=3600"`
}

type ImageURL struct {
	Key       string `json:"key"`
	SignedURL string `json:"signedUrl"`
	PublicURL string `json:"publicUrl,omitempty"`
}
