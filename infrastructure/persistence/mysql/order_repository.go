package mysql

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"orderhub/domain/order"
	"orderhub/infrastructure/persistence"
	"orderhub/infrastructure/persistence/mysql/po"
	"orderhub/infrastructure/persistence/specification"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// OrderRepository GORM implementation of order.Repository
// GORM associations are not used; items are handled by OrderItemRepository.
type OrderRepository struct {
	db         *gorm.DB
	translator *specification.GormTranslator
}

// NewOrderRepository Create order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db, translator: specification.NewGormTranslator()}
}

// getDB returns the transaction from context if available, otherwise the default db
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// isDuplicateKeyError covers gorm's translated error, mysql 1062 and sqlite's unique constraint text.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	row := po.FromOrderDomain(o)
	row.ID = 0
	if err := getDB(ctx, r.db).Create(row).Error; err != nil {
		if isDuplicateKeyError(err) {
			return order.NewDuplicateNumberError(o.Number())
		}
		return err
	}
	o.AssignID(row.ID)
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var row po.OrderPO
	if err := getDB(ctx, r.db).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(strconv.FormatInt(id, 10))
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	var row po.OrderPO
	if err := getDB(ctx, r.db).First(&row, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(number)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Update writes the transition columns in one statement guarded by version.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	row := po.FromOrderDomain(o)
	db := getDB(ctx, r.db)

	result := db.Model(&po.OrderPO{}).
		Where("id = ? AND version = ?", row.ID, row.Version).
		Updates(map[string]any{
			"status":        row.Status,
			"pay_status":    row.PayStatus,
			"checkout_time": row.CheckoutTime,
			"cancel_reason": row.CancelReason,
			"cancel_time":   row.CancelTime,
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&po.OrderPO{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return order.NewOrderNotFoundError(strconv.FormatInt(row.ID, 10))
		}
		return order.NewConcurrentModificationError(o.Number())
	}

	o.IncrementVersionForSave()
	return nil
}

func (r *OrderRepository) FindByStatusAndCreatedBefore(ctx context.Context, status order.Status, cutoff time.Time) ([]*order.Order, error) {
	spec := order.NewStatusCreatedBeforeSpecification(status, cutoff)

	var rows []po.OrderPO
	if err := getDB(ctx, r.db).Scopes(r.translator.Translate(spec)).
		Order("order_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]*order.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders, nil
}

// OrderItemRepository GORM implementation of order.ItemRepository
type OrderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) InsertBatch(ctx context.Context, items []order.Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]po.OrderItemPO, len(items))
	for i, item := range items {
		rows[i] = po.FromItemDomain(item)
		rows[i].ID = 0
	}
	return getDB(ctx, r.db).Create(&rows).Error
}

func (r *OrderItemRepository) GetByOrderID(ctx context.Context, orderID int64) ([]order.Item, error) {
	var rows []po.OrderItemPO
	if err := getDB(ctx, r.db).Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]order.Item, len(rows))
	for i, row := range rows {
		items[i] = row.ToDomain()
	}
	return items, nil
}

// Compile-time interface implementation check
var (
	_ order.Repository     = (*OrderRepository)(nil)
	_ order.ItemRepository = (*OrderItemRepository)(nil)
)
