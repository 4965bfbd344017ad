package service

import (
	"errors"
	"fmt"
	"testing"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
)

func seedBulkProducts(t *testing.T, svc *Service, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
			Brand:       "Bulk",
			Code:        fmt.Sprintf("BLK%02d", i),
			Color:       "gris",
			CostPrice:   cents(int64(100 + i)),
			SellPrice:   cents(int64(1000 + (i%5)*100)),
			Description: "lote",
			Sizes:       []domain.SizeInput{{Size: "40", Quantity: i % 3}},
		})
		if err != nil {
			t.Fatalf("seed product %d: %v", i, err)
		}
	}
}

func TestListProductsPaginationIsComplete(t *testing.T) {
	svc := newTestService()
	seedBulkProducts(t, svc, 25)

	for _, orderBy := range []string{"createdAt", "code", "sellPrice"} {
		for _, direction := range []string{"asc", "desc"} {
			seen := map[string]bool{}
			cursor := ""
			for pages := 0; ; pages++ {
				if pages > 50 {
					t.Fatalf("%s %s: pagination did not terminate", orderBy, direction)
				}
				page, err := svc.ListProducts(workerCtx(),
					PageParams{Limit: 4, Cursor: cursor, OrderBy: orderBy, Direction: direction},
					ProductFilter{Brand: "bulk"})
				if err != nil {
					t.Fatalf("list: %v", err)
				}
				if len(page.Products) > 4 {
					t.Fatalf("page exceeds limit: %d", len(page.Products))
				}
				for _, p := range page.Products {
					if seen[p.ID] {
						t.Fatalf("%s %s: product %s returned twice", orderBy, direction, p.Code)
					}
					seen[p.ID] = true
				}
				if !page.Meta.HasNext {
					if page.Meta.NextCursor != nil {
						t.Fatalf("cursor must be null on the last page")
					}
					break
				}
				cursor = *page.Meta.NextCursor
			}
			if len(seen) != 25 {
				t.Fatalf("%s %s: expected 25 products, got %d", orderBy, direction, len(seen))
			}
		}
	}
}

func TestListProductsOrderAndFilters(t *testing.T) {
	svc := newTestService()
	seedBulkProducts(t, svc, 10)

	page, err := svc.ListProducts(workerCtx(), PageParams{Limit: 100, OrderBy: "sellPrice", Direction: "asc"},
		ProductFilter{MinSellPrice: cents(1100), MaxSellPrice: cents(1300)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Products) != 6 {
		t.Fatalf("expected 6 products priced 11.00..13.00, got %d", len(page.Products))
	}
	for i := 1; i < len(page.Products); i++ {
		a, b := page.Products[i-1], page.Products[i]
		if a.SellPrice > b.SellPrice || (a.SellPrice == b.SellPrice && a.ID > b.ID) {
			t.Fatalf("products out of order at %d", i)
		}
	}

	inStock := false
	page, err = svc.ListProducts(workerCtx(), PageParams{Limit: 100}, ProductFilter{Brand: "BULK", InStock: &inStock})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Products) != 4 {
		t.Fatalf("expected 4 out-of-stock products, got %d", len(page.Products))
	}
}

func TestListRejectsUnknownOrderAndBadCursor(t *testing.T) {
	svc := newTestService()

	if _, err := svc.ListProducts(workerCtx(), PageParams{OrderBy: "password"}, ProductFilter{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid orderBy, got %v", err)
	}
	if _, err := svc.ListSales(workerCtx(), PageParams{Direction: "sideways"}, SaleFilter{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid direction, got %v", err)
	}
	if _, err := svc.ListSales(workerCtx(), PageParams{Cursor: "%%%"}, SaleFilter{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid cursor, got %v", err)
	}
	stringCursor := encodeCursor(store.Seek{Value: "ABC1", ID: "prd_1"})
	if _, err := svc.ListProducts(workerCtx(), PageParams{Cursor: stringCursor, OrderBy: "createdAt"}, ProductFilter{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected cursor/orderBy mismatch to be rejected, got %v", err)
	}
}

func TestListLimitClamps(t *testing.T) {
	w, err := resolvePage(PageParams{Limit: 500}, store.SaleOrderFields, "timestamp")
	if err != nil || w.limit != maxPageLimit {
		t.Fatalf("expected limit clamped to %d, got %d (%v)", maxPageLimit, w.limit, err)
	}
	w, err = resolvePage(PageParams{}, store.SaleOrderFields, "timestamp")
	if err != nil || w.limit != defaultPageLimit || !w.desc {
		t.Fatalf("expected default limit %d desc, got %+v (%v)", defaultPageLimit, w, err)
	}
}

func TestCursorRoundTripKeepsMillis(t *testing.T) {
	token := encodeCursor(store.Seek{Value: int64(1772384400123), ID: "sal_x"})
	seek, err := decodeCursor(token, store.KindTime)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if seek.Value.(int64) != 1772384400123 || seek.ID != "sal_x" {
		t.Fatalf("unexpected seek %+v", seek)
	}
}

func TestListSalesFilters(t *testing.T) {
	svc := newTestService()
	for _, req := range []domain.RegisterSaleRequest{
		{ProductCode: "ABC1", StoreID: "1", Quantity: 1, Size: "38", PaymentMethod: "cash"},
		{ProductCode: "ABC1", StoreID: "2", Quantity: 3, Size: "40", PaymentMethod: "card-visa"},
		{ProductCode: "INK7", StoreID: "1", Quantity: 1, Size: "37", PaymentMethod: "card-mc"},
	} {
		if _, err := svc.RegisterSale(workerCtx(), req); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	check := func(name string, f SaleFilter, want int) {
		t.Helper()
		page, err := svc.ListSales(workerCtx(), PageParams{Limit: 50}, f)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(page.Sales) != want {
			t.Fatalf("%s: expected %d sales, got %d", name, want, len(page.Sales))
		}
		if page.Meta.Total != nil {
			t.Fatalf("%s: total must stay null", name)
		}
	}

	check("store", SaleFilter{StoreID: "1"}, 2)
	check("code", SaleFilter{ProductCode: "abc1"}, 2)
	check("method prefix", SaleFilter{PaymentMethod: "CARD"}, 2)
	check("date", SaleFilter{Date: "2026-03-01"}, 3)
	check("other date", SaleFilter{Date: "2026-03-02"}, 0)
	check("min revenue", SaleFilter{MinRevenue: cents(4500)}, 2)
	check("revenue window", SaleFilter{MinRevenue: cents(2000), MaxRevenue: cents(4500)}, 2)

	if _, err := svc.ListSales(workerCtx(), PageParams{}, SaleFilter{Date: "01-03-2026"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid date, got %v", err)
	}
}

func TestListingCacheServesThenRefreshesAfterWrite(t *testing.T) {
	svc := newTestService()

	first, err := svc.ListProducts(workerCtx(), PageParams{Limit: 50}, ProductFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	seedBulkProducts(t, svc, 1)
	second, err := svc.ListProducts(workerCtx(), PageParams{Limit: 50}, ProductFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(second.Products) != len(first.Products)+1 {
		t.Fatalf("expected write to invalidate cached page: %d then %d", len(first.Products), len(second.Products))
	}
}
