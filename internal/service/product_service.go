package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrethree/internal/domain"
	"carrethree/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice = errors.New("price must be greater than zero")
	ErrInvalidStock = errors.New("stock count cannot be negative")
	ErrInvalidName  = errors.New("product name is required")
)

// ProductInput carries the fields of a create or update request.
// Nil fields are left unchanged by Update.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	ImageURL    *string
	StockCount  *int
}

// ProductService defines the catalog business logic
type ProductService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetImage(ctx context.Context, id uuid.UUID, imageURL string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// List returns the products matching the filter
func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Get returns a single product
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// Create adds a product to the catalog
func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Price:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, input)

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update applies a partial update to an existing product
func (s *productService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProductInput(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	product.UpdatedAt = time.Now()
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product. Carts holding it keep a dangling line.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// SetImage points a product at a newly uploaded image
func (s *productService) SetImage(ctx context.Context, id uuid.UUID, imageURL string) (*domain.Product, error) {
	return s.Update(ctx, id, ProductInput{ImageURL: &imageURL})
}

// Categories lists the distinct categories in the catalog
func (s *productService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func applyProductInput(product *domain.Product, input ProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.StockCount != nil {
		product.StockCount = *input.StockCount
	}
}

func validateProduct(product *domain.Product) error {
	switch {
	case product.Name == "":
		return ErrInvalidName
	case !product.Price.IsPositive():
		return ErrInvalidPrice
	case product.StockCount < 0:
		return ErrInvalidStock
	}
	return nil
}
