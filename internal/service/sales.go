package service

import (
	"context"
	"strings"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/lima"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/money"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

// RegisterSale records one sale: stock, sale row and the Lima-day report move
// together or not at all.
func (s *Service) RegisterSale(ctx context.Context, req domain.RegisterSaleRequest) (domain.Sale, error) {
	if err := requireStaff(ctx); err != nil {
		return domain.Sale{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}

	code, err := normalizeCode(req.ProductCode)
	if err != nil {
		return domain.Sale{}, err
	}
	storeID := strings.TrimSpace(string(req.StoreID))
	size := strings.TrimSpace(string(req.Size))
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if storeID == "" || size == "" || method == "" {
		return domain.Sale{}, invalid("storeId, size and paymentMethod are required")
	}

	var applied money.Cents
	if req.AppliedPrice != nil {
		if *req.AppliedPrice < 0 {
			return domain.Sale{}, invalid("appliedPrice must not be negative")
		}
		applied = *req.AppliedPrice
	}

	at := s.clock()
	sale, err := s.repo.RegisterSale(ctx, store.SaleInput{
		SaleID:        xid.New("sal"),
		ProductCode:   code,
		StoreID:       storeID,
		Size:          size,
		Quantity:      req.Quantity,
		PaymentMethod: method,
		AppliedPrice:  applied,
		ReportDate:    lima.DateOf(at),
		At:            at,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.bump(ctx, nsSales, nsProducts)
	logger.Info(ctx, "sale registered",
		"sale_id", sale.ID,
		"code", sale.ProductCode,
		"store_id", sale.StoreID,
		"quantity", sale.Quantity,
		"revenue", sale.Revenue.String(),
	)
	return *sale, nil
}
