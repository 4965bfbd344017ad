package store

import (
	"strings"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
)

type FieldKind int

const (
	KindTime FieldKind = iota
	KindInt
	KindString
)

// Seek is a keyset position: rows strictly after (Value, ID) in the scan
// order. Value is an int64 for time (unix millis) and integer fields, or a
// string.
type Seek struct {
	Value any
	ID    string
}

// ProductScan asks for at most Limit products in (OrderBy, id asc) order,
// starting after After. Only index-friendly predicates live here.
type ProductScan struct {
	OrderBy      string
	Desc         bool
	After        *Seek
	Limit        int
	MinSellPrice *money.Cents
	MaxSellPrice *money.Cents
}

type SaleScan struct {
	OrderBy             string
	Desc                bool
	After               *Seek
	Limit               int
	StoreID             string
	ProductCode         string
	PaymentMethodPrefix string
	From                *time.Time // inclusive
	To                  *time.Time // exclusive
}

// ReportScan lists reports by date descending within [From, To), strictly
// before Before when set.
type ReportScan struct {
	From   string
	To     string
	Before string
	Limit  int
}

var ProductOrderFields = map[string]FieldKind{
	"createdAt": KindTime,
	"updatedAt": KindTime,
	"code":      KindString,
	"brand":     KindString,
	"color":     KindString,
	"sellPrice": KindInt,
	"costPrice": KindInt,
}

var SaleOrderFields = map[string]FieldKind{
	"timestamp":        KindTime,
	"productCode":      KindString,
	"storeId":          KindString,
	"paymentMethod":    KindString,
	"quantity":         KindInt,
	"subGain":          KindInt,
	"appliedSellPrice": KindInt,
	"revenue":          KindInt,
}

func ProductSortValue(p domain.Product, field string) any {
	switch field {
	case "updatedAt":
		return p.UpdatedAt.UnixMilli()
	case "code":
		return p.Code
	case "brand":
		return p.Brand
	case "color":
		return p.Color
	case "sellPrice":
		return int64(p.SellPrice)
	case "costPrice":
		return int64(p.CostPrice)
	default:
		return p.CreatedAt.UnixMilli()
	}
}

func SaleSortValue(s domain.Sale, field string) any {
	switch field {
	case "productCode":
		return s.ProductCode
	case "storeId":
		return s.StoreID
	case "paymentMethod":
		return s.PaymentMethod
	case "quantity":
		return int64(s.Quantity)
	case "subGain":
		return int64(s.SubGain)
	case "appliedSellPrice":
		return int64(s.AppliedSellPrice)
	case "revenue":
		return int64(s.Revenue)
	default:
		return s.Timestamp.UnixMilli()
	}
}

// CompareValues orders two sort values of the same kind.
func CompareValues(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	}
	return 0
}

// Less orders rows by value (asc or desc) and then id ascending.
func Less(av any, aID string, bv any, bID string, desc bool) bool {
	c := CompareValues(av, bv)
	if c != 0 {
		if desc {
			return c > 0
		}
		return c < 0
	}
	return aID < bID
}

// IsAfter reports whether the row (value, id) sorts strictly after seek.
func IsAfter(value any, id string, seek *Seek, desc bool) bool {
	if seek == nil {
		return true
	}
	return Less(seek.Value, seek.ID, value, id, desc)
}
