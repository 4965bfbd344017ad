package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"retailops/backend/internal/cache"
	"retailops/backend/internal/domain"
	"retailops/backend/internal/lima"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/money"
	"retailops/backend/internal/store"
)

const (
	nsProducts = "products"
	nsSales    = "sales"

	defaultPageLimit = 20
	maxPageLimit     = 100
	maxScanWindow    = 1000
)

type PageParams struct {
	Limit     int    `json:"limit"`
	Cursor    string `json:"cursor"`
	OrderBy   string `json:"orderBy"`
	Direction string `json:"direction"`
}

type SaleFilter struct {
	StoreID       string       `json:"storeId"`
	ProductCode   string       `json:"productCode"`
	PaymentMethod string       `json:"paymentMethod"`
	Date          string       `json:"date"`
	MinRevenue    *money.Cents `json:"minRevenue"`
	MaxRevenue    *money.Cents `json:"maxRevenue"`
}

type ProductFilter struct {
	Brand        string       `json:"brand"`
	Color        string       `json:"color"`
	Code         string       `json:"code"`
	Size         string       `json:"size"`
	InStock      *bool        `json:"inStock"`
	MinSellPrice *money.Cents `json:"minSellPrice"`
	MaxSellPrice *money.Cents `json:"maxSellPrice"`
}

type cursorPayload struct {
	LastValue any    `json:"lastValue"`
	LastID    string `json:"lastId"`
}

func encodeCursor(seek store.Seek) string {
	raw, _ := json.Marshal(cursorPayload{LastValue: seek.Value, LastID: seek.ID})
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeCursor(token string, kind store.FieldKind) (*store.Seek, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			return nil, invalid("malformed cursor")
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload cursorPayload
	if err := dec.Decode(&payload); err != nil || payload.LastID == "" {
		return nil, invalid("malformed cursor")
	}

	switch kind {
	case store.KindString:
		v, ok := payload.LastValue.(string)
		if !ok {
			return nil, invalid("cursor does not match orderBy")
		}
		return &store.Seek{Value: v, ID: payload.LastID}, nil
	default:
		n, ok := payload.LastValue.(json.Number)
		if !ok {
			return nil, invalid("cursor does not match orderBy")
		}
		v, err := n.Int64()
		if err != nil {
			return nil, invalid("cursor does not match orderBy")
		}
		return &store.Seek{Value: v, ID: payload.LastID}, nil
	}
}

type pageWindow struct {
	limit   int
	orderBy string
	desc    bool
	after   *store.Seek
}

func resolvePage(p PageParams, fields map[string]store.FieldKind, defaultOrder string) (pageWindow, error) {
	w := pageWindow{limit: p.Limit, orderBy: strings.TrimSpace(p.OrderBy), desc: true}
	switch {
	case w.limit == 0:
		w.limit = defaultPageLimit
	case w.limit < 1:
		w.limit = 1
	case w.limit > maxPageLimit:
		w.limit = maxPageLimit
	}

	switch strings.ToLower(strings.TrimSpace(p.Direction)) {
	case "", "desc":
	case "asc":
		w.desc = false
	default:
		return pageWindow{}, invalid("direction must be asc or desc")
	}

	if w.orderBy == "" {
		w.orderBy = defaultOrder
	}
	kind, ok := fields[w.orderBy]
	if !ok {
		return pageWindow{}, invalid("orderBy %q is not supported", w.orderBy)
	}

	after, err := decodeCursor(p.Cursor, kind)
	if err != nil {
		return pageWindow{}, err
	}
	w.after = after
	return w, nil
}

// collectPage over-fetches one window of rows past after, keeps the rows
// that pass the in-memory filter and stops at limit survivors.
func collectPage[T any](
	ctx context.Context,
	w pageWindow,
	scan func(ctx context.Context, after *store.Seek, window int) ([]T, error),
	keep func(T) bool,
	seekOf func(T) store.Seek,
) ([]T, domain.ListMeta, error) {
	window := min(maxScanWindow, w.limit*3+1)
	rows, err := scan(ctx, w.after, window)
	if err != nil {
		return nil, domain.ListMeta{}, err
	}

	meta := domain.ListMeta{Limit: w.limit}
	out := make([]T, 0, w.limit)
	for _, row := range rows {
		if !keep(row) {
			continue
		}
		out = append(out, row)
		if len(out) == w.limit {
			next := encodeCursor(seekOf(row))
			meta.NextCursor = &next
			meta.HasNext = true
			return out, meta, nil
		}
	}
	if len(rows) > 0 && len(rows) == window {
		next := encodeCursor(seekOf(rows[len(rows)-1]))
		meta.NextCursor = &next
		meta.HasNext = true
	}
	return out, meta, nil
}

func cachedPage[T any](ctx context.Context, s *Service, namespace string, query any, build func() (*T, error)) (*T, error) {
	rawQuery, _ := json.Marshal(query)
	key, err := cache.Key(ctx, s.cache, namespace, string(rawQuery))
	if err != nil {
		logger.Warn(ctx, "listing cache unavailable", "namespace", namespace, "error", err)
		return build()
	}
	if hit, ok, err := cache.GetJSON[T](ctx, s.cache, key); err != nil {
		logger.Warn(ctx, "listing cache read failed", "key", key, "error", err)
	} else if ok {
		return hit, nil
	}

	page, err := build()
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, page, s.cacheTTL); err != nil {
		logger.Warn(ctx, "listing cache write failed", "key", key, "error", err)
	}
	return page, nil
}

func (s *Service) ListSales(ctx context.Context, p PageParams, f SaleFilter) (domain.SalePage, error) {
	if err := requireStaff(ctx); err != nil {
		return domain.SalePage{}, err
	}
	w, err := resolvePage(p, store.SaleOrderFields, "timestamp")
	if err != nil {
		return domain.SalePage{}, err
	}

	scan := store.SaleScan{
		OrderBy:             w.orderBy,
		Desc:                w.desc,
		StoreID:             strings.TrimSpace(f.StoreID),
		ProductCode:         strings.ToUpper(strings.TrimSpace(f.ProductCode)),
		PaymentMethodPrefix: strings.ToLower(strings.TrimSpace(f.PaymentMethod)),
	}
	if date := strings.TrimSpace(f.Date); date != "" {
		if !lima.ValidDate(date) {
			return domain.SalePage{}, invalid("date must be YYYY-MM-DD")
		}
		from, to, err := lima.DayBounds(date)
		if err != nil {
			return domain.SalePage{}, invalid("%v", err)
		}
		scan.From, scan.To = &from, &to
	}
	if f.MinRevenue != nil && f.MaxRevenue != nil && *f.MinRevenue > *f.MaxRevenue {
		return domain.SalePage{}, invalid("minRevenue must not exceed maxRevenue")
	}

	query := struct {
		Page   PageParams `json:"page"`
		Filter SaleFilter `json:"filter"`
	}{p, f}
	page, err := cachedPage(ctx, s, nsSales, query, func() (*domain.SalePage, error) {
		sales, meta, err := collectPage(ctx, w,
			func(ctx context.Context, after *store.Seek, window int) ([]domain.Sale, error) {
				q := scan
				q.After = after
				q.Limit = window
				return s.repo.ScanSales(ctx, q)
			},
			func(sale domain.Sale) bool {
				if f.MinRevenue != nil && sale.Revenue < *f.MinRevenue {
					return false
				}
				if f.MaxRevenue != nil && sale.Revenue > *f.MaxRevenue {
					return false
				}
				return true
			},
			func(sale domain.Sale) store.Seek {
				return store.Seek{Value: store.SaleSortValue(sale, w.orderBy), ID: sale.ID}
			},
		)
		if err != nil {
			return nil, err
		}
		return &domain.SalePage{Meta: meta, Sales: sales}, nil
	})
	if err != nil {
		return domain.SalePage{}, err
	}
	return *page, nil
}

func (s *Service) ListProducts(ctx context.Context, p PageParams, f ProductFilter) (domain.ProductPage, error) {
	if err := requireStaff(ctx); err != nil {
		return domain.ProductPage{}, err
	}
	w, err := resolvePage(p, store.ProductOrderFields, "createdAt")
	if err != nil {
		return domain.ProductPage{}, err
	}
	if f.MinSellPrice != nil && f.MaxSellPrice != nil && *f.MinSellPrice > *f.MaxSellPrice {
		return domain.ProductPage{}, invalid("minSellPrice must not exceed maxSellPrice")
	}

	brand := strings.ToLower(strings.TrimSpace(f.Brand))
	color := strings.ToLower(strings.TrimSpace(f.Color))
	code := strings.ToLower(strings.TrimSpace(f.Code))
	size := strings.ToLower(strings.TrimSpace(f.Size))

	query := struct {
		Page   PageParams    `json:"page"`
		Filter ProductFilter `json:"filter"`
	}{p, f}
	page, err := cachedPage(ctx, s, nsProducts, query, func() (*domain.ProductPage, error) {
		products, meta, err := collectPage(ctx, w,
			func(ctx context.Context, after *store.Seek, window int) ([]domain.Product, error) {
				return s.repo.ScanProducts(ctx, store.ProductScan{
					OrderBy:      w.orderBy,
					Desc:         w.desc,
					After:        after,
					Limit:        window,
					MinSellPrice: f.MinSellPrice,
					MaxSellPrice: f.MaxSellPrice,
				})
			},
			func(product domain.Product) bool {
				return matchProduct(product, brand, color, code, size, f.InStock)
			},
			func(product domain.Product) store.Seek {
				return store.Seek{Value: store.ProductSortValue(product, w.orderBy), ID: product.ID}
			},
		)
		if err != nil {
			return nil, err
		}
		return &domain.ProductPage{Meta: meta, Products: products}, nil
	})
	if err != nil {
		return domain.ProductPage{}, err
	}
	return *page, nil
}

func matchProduct(p domain.Product, brand, color, code, size string, inStock *bool) bool {
	if brand != "" && !strings.Contains(strings.ToLower(p.Brand), brand) {
		return false
	}
	if color != "" && !strings.Contains(strings.ToLower(p.Color), color) {
		return false
	}
	if code != "" && !strings.Contains(strings.ToLower(p.Code), code) {
		return false
	}
	if size != "" {
		found := false
		for _, entry := range p.Sizes {
			if strings.Contains(strings.ToLower(entry.Size), size) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if inStock != nil {
		stocked := false
		for _, entry := range p.Sizes {
			if entry.Quantity > 0 {
				stocked = true
				break
			}
		}
		if stocked != *inStock {
			return false
		}
	}
	return true
}
