package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/money"
	"retailops/backend/internal/xid"
)

var daysPerRentMonth = decimal.NewFromInt(30)

func dailyRent(monthly money.Cents) money.Cents {
	return money.FromDecimal(monthly.Decimal().Div(daysPerRentMonth))
}

func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	if err := requireStaff(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListStores(ctx)
}

func (s *Service) GetStore(ctx context.Context, id string) (domain.Store, error) {
	if err := requireStaff(ctx); err != nil {
		return domain.Store{}, err
	}
	st, err := s.repo.GetStore(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Store{}, err
	}
	return *st, nil
}

func (s *Service) CreateStore(ctx context.Context, req domain.StoreRequest) (domain.Store, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Store{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Store{}, err
	}

	id := strings.TrimSpace(string(req.ID))
	if id == "" {
		id = xid.New("sto")
	}
	if strings.Contains(id, "/") {
		return domain.Store{}, invalid("store id must not contain '/'")
	}

	now := s.clock()
	st := domain.Store{ID: id, Extra: req.Extra, CreatedAt: now, UpdatedAt: now}
	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.RentMonthly != nil {
		st.RentMonthly = *req.RentMonthly
	}
	if st.Extra == nil {
		st.Extra = map[string]any{}
	}
	st.RentDaily = dailyRent(st.RentMonthly)

	created, err := s.repo.CreateStore(ctx, st)
	if err != nil {
		return domain.Store{}, err
	}
	return *created, nil
}

func (s *Service) UpdateStore(ctx context.Context, id string, req domain.StoreRequest) (domain.Store, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Store{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Store{}, err
	}
	existing, err := s.repo.GetStore(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Store{}, err
	}

	st := *existing
	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.RentMonthly != nil {
		st.RentMonthly = *req.RentMonthly
	}
	if req.Extra != nil {
		st.Extra = req.Extra
	}
	st.RentDaily = dailyRent(st.RentMonthly)
	st.UpdatedAt = s.clock()

	updated, err := s.repo.UpdateStore(ctx, st)
	if err != nil {
		return domain.Store{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteStore(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.DeleteStore(ctx, strings.TrimSpace(id))
}
