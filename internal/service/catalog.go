package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func (s *Service) CreateShop(ctx context.Context, req domain.ShopCreateRequest) (domain.Shop, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Shop{}, invalid("name is required")
	}
	shop, err := s.repo.CreateShop(ctx, domain.Shop{
		Name:     name,
		Location: strings.TrimSpace(req.Location),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Status:   domain.ShopActive,
	})
	if err != nil {
		return domain.Shop{}, fmt.Errorf("create shop: %w", err)
	}
	s.logger.Sugar().Infow("shop created", "shop_id", shop.ID, "name", shop.Name)
	return shop, nil
}

func (s *Service) GetShop(ctx context.Context, id int64) (domain.Shop, error) {
	return s.repo.GetShop(ctx, id)
}

func (s *Service) ListShops(ctx context.Context) ([]domain.Shop, error) {
	return s.repo.ListShops(ctx)
}

// CreateProduct registers a product. SKUs are stored upper-case and must be
// unique regardless of case.
func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	name := strings.TrimSpace(req.Name)
	switch {
	case sku == "":
		return domain.Product{}, invalid("sku is required")
	case name == "":
		return domain.Product{}, invalid("name is required")
	case req.DefaultMinStockLevel < 0:
		return domain.Product{}, invalid("default_min_stock_level must not be negative")
	}

	product, err := s.repo.CreateProduct(ctx, domain.Product{
		SKU:                  sku,
		Name:                 name,
		Description:          strings.TrimSpace(req.Description),
		Barcode:              strings.TrimSpace(req.Barcode),
		DefaultMinStockLevel: req.DefaultMinStockLevel,
		Status:               domain.ProductActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Product{}, fmt.Errorf("sku %s: %w", sku, store.ErrDuplicate)
		}
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.Sugar().Infow("product created", "product_id", product.ID, "sku", product.SKU)
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}
