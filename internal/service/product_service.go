package service

import (
	"context"
	"fmt"

	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/repo/postgres"
)

type ProductService struct {
	products postgres.ProductsRepo
}

func NewProductService(products postgres.ProductsRepo) *ProductService {
	return &ProductService{products: products}
}

func (s *ProductService) Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.Product, error) {
	if err := validateProductFields(req.Name, req.Price); err != nil {
		return nil, err
	}
	if req.Inventory < 0 {
		return nil, domain.Errorf(domain.KindInvalid, "Inventory cannot be negative")
	}

	p, err := s.products.Create(ctx, req.Name, req.Price, req.Inventory)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if p == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Product not found: %d", id)
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	ps, err := s.products.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return ps, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, req *domain.UpdateProductRequest) (*domain.Product, error) {
	if err := validateProductFields(req.Name, req.Price); err != nil {
		return nil, err
	}

	p, err := s.products.Update(ctx, id, req.Name, req.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if p == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Product not found: %d", id)
	}
	return p, nil
}

func (s *ProductService) SetInventory(ctx context.Context, id int64, inventory int) (*domain.Product, error) {
	if inventory < 0 {
		return nil, domain.Errorf(domain.KindInvalid, "Inventory cannot be negative")
	}

	p, err := s.products.SetInventory(ctx, id, inventory)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory: %w", err)
	}
	if p == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Product not found: %d", id)
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	ok, err := s.products.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !ok {
		return domain.Errorf(domain.KindNotFound, "Product not found: %d", id)
	}
	return nil
}

func validateProductFields(name string, price int64) error {
	if name == "" {
		return domain.Errorf(domain.KindInvalid, "Product name is required")
	}
	if price <= 0 {
		return domain.Errorf(domain.KindInvalid, "Price must be positive")
	}
	return nil
}
