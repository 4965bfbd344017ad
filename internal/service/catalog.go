package service

import (
	"context"
	"regexp"
	"strings"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/xid"
)

const (
	maxBrandLen    = 100
	maxCodeLen     = 100
	maxColorLen    = 50
	maxImageKeyLen = 460
	maxSizes       = 200
)

var imageKeyPattern = regexp.MustCompile(`(?i)^images/[A-Za-z0-9\-_.]+?\.[a-z0-9]{1,6}$`)

func normalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", invalid("code is required")
	}
	if strings.Contains(code, "/") {
		return "", invalid("code must not contain '/'")
	}
	return truncate(code, maxCodeLen), nil
}

func validImageKey(key string) bool {
	return len(key) <= maxImageKeyLen && imageKeyPattern.MatchString(key)
}

func normalizeImageKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", nil
	}
	if !validImageKey(key) {
		return "", invalid("imageKey %q is not a valid image key", key)
	}
	return key, nil
}

func normalizeSizes(in []domain.SizeInput) ([]domain.SizeStock, error) {
	if len(in) > maxSizes {
		return nil, invalid("at most %d sizes allowed", maxSizes)
	}
	out := make([]domain.SizeStock, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, entry := range in {
		size := strings.TrimSpace(string(entry.Size))
		if size == "" {
			return nil, invalid("size label is required")
		}
		if _, dup := seen[size]; dup {
			return nil, invalid("size %s is listed more than once", size)
		}
		seen[size] = struct{}{}
		if entry.Quantity < 0 {
			return nil, invalid("quantity for size %s must not be negative", size)
		}
		out = append(out, domain.SizeStock{Size: size, Quantity: entry.Quantity})
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	code, err := normalizeCode(req.Code)
	if err != nil {
		return domain.Product{}, err
	}
	sizes, err := normalizeSizes(req.Sizes)
	if err != nil {
		return domain.Product{}, err
	}
	imageKey, err := normalizeImageKey(req.ImageKey)
	if err != nil {
		return domain.Product{}, err
	}
	color := truncate(strings.TrimSpace(req.Color), maxColorLen)
	description := strings.TrimSpace(req.Description)
	if color == "" || description == "" {
		return domain.Product{}, invalid("color and description are required")
	}

	now := s.clock()
	product := domain.Product{
		ID:          xid.New("prd"),
		Brand:       truncate(strings.TrimSpace(req.Brand), maxBrandLen),
		Code:        code,
		Color:       color,
		CostPrice:   *req.CostPrice,
		SellPrice:   *req.SellPrice,
		Description: description,
		Sizes:       sizes,
		ImageKey:    imageKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.bump(ctx, nsProducts)
	logger.Info(ctx, "product created", "id", created.ID, "code", created.Code)
	return *created, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := requireStaff(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if req.Empty() {
		return domain.Product{}, invalid("at least one field is required")
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	updated := *existing

	if req.Brand != nil {
		updated.Brand = truncate(strings.TrimSpace(*req.Brand), maxBrandLen)
	}
	if req.Code != nil {
		code, err := normalizeCode(*req.Code)
		if err != nil {
			return domain.Product{}, err
		}
		updated.Code = code
	}
	if req.Color != nil {
		updated.Color = truncate(strings.TrimSpace(*req.Color), maxColorLen)
	}
	if req.CostPrice != nil {
		updated.CostPrice = *req.CostPrice
	}
	if req.SellPrice != nil {
		updated.SellPrice = *req.SellPrice
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Sizes.Set {
		if req.Sizes.Sizes == nil {
			updated.Sizes = []domain.SizeStock{}
		} else {
			if len(req.Sizes.Sizes) == 0 {
				return domain.Product{}, invalid("sizes must hold 1..%d entries", maxSizes)
			}
			sizes, err := normalizeSizes(req.Sizes.Sizes)
			if err != nil {
				return domain.Product{}, err
			}
			updated.Sizes = sizes
		}
	}
	if req.ImageKey != nil {
		key, err := normalizeImageKey(*req.ImageKey)
		if err != nil {
			return domain.Product{}, err
		}
		updated.ImageKey = key
	}
	updated.UpdatedAt = s.clock()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.bump(ctx, nsProducts)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.bump(ctx, nsProducts)
	logger.Info(ctx, "product deleted", "id", id)
	return nil
}
