package service

import (
	"context"
	"sort"

	"carrethree/internal/domain"
	"carrethree/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	findErr  error
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	found := make(map[uuid.UUID]*domain.Product)
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			found[id] = product
		}
	}
	return found, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for _, p := range m.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

type mockCategoryRepository struct {
	products *mockProductRepository
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	categories := []string{}
	for _, p := range m.products.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

type mockCartRepository struct {
	carts  map[uuid.UUID][]domain.CartLine
	merges map[[2]uuid.UUID]bool
	writes int
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{
		carts:  make(map[uuid.UUID][]domain.CartLine),
		merges: make(map[[2]uuid.UUID]bool),
	}
}

func (m *mockCartRepository) Lines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	return append([]domain.CartLine{}, m.carts[userID]...), nil
}

func (m *mockCartRepository) Replace(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) error {
	m.writes++
	m.carts[userID] = append([]domain.CartLine{}, lines...)
	return nil
}

func (m *mockCartRepository) ApplyMerge(ctx context.Context, userID, mergeID uuid.UUID, lines []domain.CartLine) (bool, error) {
	key := [2]uuid.UUID{userID, mergeID}
	if m.merges[key] {
		return false, nil
	}
	m.merges[key] = true
	return true, m.Replace(ctx, userID, lines)
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	m.writes++
	delete(m.carts, userID)
	return nil
}
