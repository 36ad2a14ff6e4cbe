package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"carrethree/internal/config"
	"carrethree/internal/database"
	"carrethree/internal/domain"
	"carrethree/internal/logger"
	"carrethree/internal/repository"
	"carrethree/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type sampleUser struct {
	name     string
	email    string
	password string
	isAdmin  bool
}

var sampleUsers = []sampleUser{
	{name: "Douglas Admin", email: "douglas@carrethree.br", password: "adminpass", isAdmin: true},
	{name: "Henrique Admin", email: "henrique@carrethree.br", password: "adminpass", isAdmin: true},
	{name: "Nicolas Admin", email: "nicolas@carrethree.br", password: "adminpass", isAdmin: true},
	{name: "Carla Cliente", email: "carla@example.com", password: "customer123"},
}

type sampleProduct struct {
	name        string
	description string
	price       string
	category    string
	stock       int
}

var sampleProducts = []sampleProduct{
	{"Whole Milk 1L", "Fresh pasteurized whole milk.", "4.99", "Dairy", 40},
	{"Free-Range Eggs (12)", "A dozen large free-range eggs.", "12.50", "Dairy", 5},
	{"Greek Yogurt", "Plain strained yogurt, 500g.", "8.90", "Dairy", 18},
	{"Sourdough Bread", "Naturally leavened loaf baked daily.", "15.00", "Bakery", 10},
	{"French Baguette", "Crusty white baguette.", "6.50", "Bakery", 25},
	{"Bananas (1kg)", "Ripe Cavendish bananas.", "5.49", "Produce", 60},
	{"Tomatoes (1kg)", "Vine tomatoes.", "9.99", "Produce", 35},
	{"Arabica Coffee 500g", "Medium roast ground coffee.", "29.90", "Pantry", 20},
	{"Brown Rice 1kg", "Long grain brown rice.", "7.80", "Pantry", 0},
	{"Olive Oil 500ml", "Extra virgin olive oil.", "32.00", "Pantry", 12},
}

// seeder fills an empty store with sample accounts and products
type seeder struct {
	users    repository.UserRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func (s *seeder) importData(ctx context.Context) error {
	now := time.Now().UTC()

	for _, u := range sampleUsers {
		hash, err := service.HashPassword(u.password)
		if err != nil {
			return err
		}
		user := &domain.User{
			ID:           uuid.New(),
			Name:         u.name,
			Email:        u.email,
			PasswordHash: hash,
			IsAdmin:      u.isAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.email, err)
		}
	}
	s.logger.Info("Users imported", zap.Int("count", len(sampleUsers)))

	for _, p := range sampleProducts {
		product := &domain.Product{
			ID:          uuid.New(),
			Name:        p.name,
			Description: p.description,
			Price:       decimal.RequireFromString(p.price),
			Category:    p.category,
			StockCount:  p.stock,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.products.Create(ctx, product); err != nil {
			return fmt.Errorf("failed to import product %s: %w", p.name, err)
		}
	}
	s.logger.Info("Products imported", zap.Int("count", len(sampleProducts)))

	return nil
}

// destroyData removes every user and product. Carts and refresh tokens go with
// their users; cart lines referencing products become dangling.
func destroyData(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM products`, `DELETE FROM users`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to destroy data: %w", err)
		}
	}
	return tx.Commit()
}

func rootCmd() *cobra.Command {
	var destroy bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate or clear the storefront database",
		Long: `Seed wipes users and products and imports the sample catalog together
with three admin accounts and one customer account. With --destroy it only wipes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(ctx context.Context, db *sql.DB, log *zap.Logger) error {
				if err := destroyData(ctx, db); err != nil {
					return err
				}
				log.Info("Old data destroyed")
				if destroy {
					return nil
				}

				s := &seeder{
					users:    repository.NewUserRepository(db),
					products: repository.NewProductRepository(db),
					logger:   log,
				}
				return s.importData(ctx)
			})
		},
	}
	cmd.Flags().BoolVarP(&destroy, "destroy", "d", false, "Only delete existing data")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(ctx context.Context, db *sql.DB, log *zap.Logger) error {
				return database.GetMigrationStatus(db)
			})
		},
	})

	return cmd
}

func withDatabase(fn func(ctx context.Context, db *sql.DB, log *zap.Logger) error) error {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	defer dbService.Close()

	db := dbService.DB()
	if err := database.RunMigrations(db, log); err != nil {
		return err
	}

	return fn(context.Background(), db, log)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
