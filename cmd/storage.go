package cmd

import (
	"context"
	"fmt"

	"orderhub/api/health"
	"orderhub/config"
	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/order"
	"orderhub/domain/shared"
	"orderhub/domain/user"
	"orderhub/infrastructure/persistence/memory"
	"orderhub/infrastructure/persistence/mysql"
	"orderhub/infrastructure/persistence/pebblestore"
	"orderhub/infrastructure/persistence/retry"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage is one backend's repositories plus the unit of work spanning them.
type Storage struct {
	Users      user.Repository
	Addresses  addressbook.Repository
	Carts      cart.Repository
	Orders     order.Repository
	Items      order.ItemRepository
	UoWFactory shared.UnitOfWorkFactory

	// Pinger is nil for backends without a connection to check.
	Pinger health.Pinger
	close  func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage selects the backend named by database.type.
func OpenStorage(cfg *config.Config, publisher shared.EventPublisher) (*Storage, error) {
	retryConfig := retry.FromAppConfig(cfg)

	switch cfg.Database.Type {
	case "", "memory":
		logger.Info("Using in-memory persistence")
		return &Storage{
			Users:      memory.NewUserRepository(),
			Addresses:  memory.NewAddressBookRepository(),
			Carts:      memory.NewCartRepository(),
			Orders:     memory.NewOrderRepository(),
			Items:      memory.NewOrderItemRepository(),
			UoWFactory: memory.NewUnitOfWorkFactory(publisher, retryConfig),
		}, nil

	case "mysql":
		db, err := mysql.ConfigFromApp(cfg.Database).Connect()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		if err := mysql.Ping(context.Background(), db); err != nil {
			return nil, fmt.Errorf("failed to ping MySQL: %w", err)
		}
		logger.Info("Connected to MySQL", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		if cfg.IsDevelopment() {
			if err := mysql.Migrate(db); err != nil {
				return nil, err
			}
		}
		return gormStorage(db, publisher, retryConfig)

	case "sqlite":
		db, err := mysql.OpenSQLite(cfg.Database.SQLitePath, cfg.Database.LogLevel)
		if err != nil {
			return nil, err
		}
		if err := mysql.Migrate(db); err != nil {
			return nil, err
		}
		logger.Info("Using SQLite persistence", zap.String("path", cfg.Database.SQLitePath))
		return gormStorage(db, publisher, retryConfig)

	case "pebble":
		store, err := pebblestore.Open(cfg.Database.PebbleDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Pebble persistence", zap.String("dir", cfg.Database.PebbleDir))
		return &Storage{
			Users:      pebblestore.NewUserRepository(store),
			Addresses:  pebblestore.NewAddressBookRepository(store),
			Carts:      pebblestore.NewCartRepository(store),
			Orders:     pebblestore.NewOrderRepository(store),
			Items:      pebblestore.NewOrderItemRepository(store),
			UoWFactory: pebblestore.NewUnitOfWorkFactory(store, publisher, retryConfig),
			close:      store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
}

func gormStorage(db *gorm.DB, publisher shared.EventPublisher, retryConfig retry.Config) (*Storage, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return &Storage{
		Users:      mysql.NewUserRepository(db),
		Addresses:  mysql.NewAddressBookRepository(db),
		Carts:      mysql.NewCartRepository(db),
		Orders:     mysql.NewOrderRepository(db),
		Items:      mysql.NewOrderItemRepository(db),
		UoWFactory: mysql.NewUnitOfWorkFactory(db, publisher, retryConfig),
		Pinger:     sqlDB,
		close:      sqlDB.Close,
	}, nil
}
