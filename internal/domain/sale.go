package domain

import (
	"time"

	"retailops/backend/internal/money"
)

// NewSale prices a sale of quantity units of product. A zero applied price
// falls back to the product's current sell price.
func NewSale(id string, product Product, storeID, size string, quantity int, paymentMethod string, applied money.Cents, at time.Time) Sale {
	if applied <= 0 {
		applied = product.SellPrice
	}
	qty := money.Cents(quantity)
	return Sale{
		ID:                id,
		ProductCode:       product.Code,
		StoreID:           storeID,
		Quantity:          quantity,
		Size:              size,
		CostPrice:         product.CostPrice,
		OriginalSellPrice: product.SellPrice,
		AppliedSellPrice:  applied,
		SubGain:           (applied - product.CostPrice) * qty,
		Revenue:           applied * qty,
		PaymentMethod:     paymentMethod,
		Timestamp:         at,
	}
}

// ApplySale folds one sale into the report's running totals.
func (r *DailyReport) ApplySale(s Sale) {
	r.ensureMaps()
	r.TotalSales += s.SubGain
	r.StoreTotals[s.StoreID] += s.SubGain
	r.PaymentTotals[s.PaymentMethod] += s.Revenue
	perStore := r.StorePaymentTotals[s.StoreID]
	if perStore == nil {
		perStore = map[string]money.Cents{}
		r.StorePaymentTotals[s.StoreID] = perStore
	}
	perStore[s.PaymentMethod] += s.Revenue
	if !containsString(r.Meta.StoreIDs, s.StoreID) {
		r.Meta.StoreIDs = append(r.Meta.StoreIDs, s.StoreID)
	}
}

// ApplyPatch merges a manual edit. storeTotals entries overwrite key by key;
// nil arguments leave the field as it is.
func (r *DailyReport) ApplyPatch(storeTotals map[string]money.Cents, totalSales, totalExpenses, utilities *money.Cents, otherExpenseIDs, storeIDs *[]string) {
	r.ensureMaps()
	for k, v := range storeTotals {
		r.StoreTotals[k] = v
	}
	if totalSales != nil {
		r.TotalSales = *totalSales
	}
	if totalExpenses != nil {
		r.TotalExpenses = *totalExpenses
	}
	if utilities != nil {
		r.Utilities = *utilities
	}
	if otherExpenseIDs != nil {
		r.Meta.OtherExpenseIDs = append([]string{}, (*otherExpenseIDs)...)
	}
	if storeIDs != nil {
		r.Meta.StoreIDs = append([]string{}, (*storeIDs)...)
	}
}

func (r *DailyReport) ensureMaps() {
	if r.StoreTotals == nil {
		r.StoreTotals = map[string]money.Cents{}
	}
	if r.PaymentTotals == nil {
		r.PaymentTotals = map[string]money.Cents{}
	}
	if r.StorePaymentTotals == nil {
		r.StorePaymentTotals = map[string]map[string]money.Cents{}
	}
	if r.Meta.OtherExpenseIDs == nil {
		r.Meta.OtherExpenseIDs = []string{}
	}
	if r.Meta.StoreIDs == nil {
		r.Meta.StoreIDs = []string{}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
