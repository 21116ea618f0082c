package po

import (
	"time"

	"orderhub/domain/order"

	"github.com/shopspring/decimal"
)

// OrderPO Order persistence object
// Only used for database mapping. GORM associations are not defined here;
// line items live in their own table and are loaded explicitly.
type OrderPO struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement"`
	Number                string          `gorm:"size:32;uniqueIndex;not null"`
	UserID                int64           `gorm:"index;not null"`
	AddressBookID         int64           `gorm:"not null"`
	Consignee             string          `gorm:"size:64"`
	Phone                 string          `gorm:"size:32"`
	Address               string          `gorm:"size:255"`
	Remark                string          `gorm:"size:255"`
	Status                string          `gorm:"size:32;not null;index:idx_orders_status_time,priority:1"`
	PayStatus             string          `gorm:"size:16;not null"`
	Amount                decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	OrderTime             time.Time       `gorm:"not null;index:idx_orders_status_time,priority:2"`
	EstimatedDeliveryTime time.Time
	CheckoutTime          *time.Time
	CancelReason          string `gorm:"size:255"`
	CancelTime            *time.Time
	Version               int       `gorm:"not null;default:0"`
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (OrderPO) TableName() string {
	return "orders"
}

// OrderItemPO Order line persistence object
type OrderItemPO struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"index;not null"`
	Name      string          `gorm:"size:128;not null"`
	Image     string          `gorm:"size:255"`
	DishID    int64           `gorm:"default:0"`
	SetmealID int64           `gorm:"default:0"`
	Flavor    string          `gorm:"size:64"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (OrderItemPO) TableName() string {
	return "order_items"
}

// FromOrderDomain converts the aggregate to its row. Times are stored in UTC.
func FromOrderDomain(o *order.Order) *OrderPO {
	d := o.ToDTO()
	return &OrderPO{
		ID:                    d.ID,
		Number:                d.Number,
		UserID:                d.UserID,
		AddressBookID:         d.AddressBookID,
		Consignee:             d.Consignee,
		Phone:                 d.Phone,
		Address:               d.Address,
		Remark:                d.Remark,
		Status:                string(d.Status),
		PayStatus:             string(d.PayStatus),
		Amount:                d.Amount,
		OrderTime:             d.OrderTime.UTC(),
		EstimatedDeliveryTime: d.EstimatedDeliveryTime.UTC(),
		CheckoutTime:          utcPtr(d.CheckoutTime),
		CancelReason:          d.CancelReason,
		CancelTime:            utcPtr(d.CancelTime),
		Version:               d.Version,
	}
}

func (p *OrderPO) ToDomain() *order.Order {
	return order.RebuildFromDTO(order.ReconstructionDTO{
		ID:                    p.ID,
		Number:                p.Number,
		UserID:                p.UserID,
		AddressBookID:         p.AddressBookID,
		Consignee:             p.Consignee,
		Phone:                 p.Phone,
		Address:               p.Address,
		Remark:                p.Remark,
		Status:                order.Status(p.Status),
		PayStatus:             order.PayStatus(p.PayStatus),
		Amount:                p.Amount,
		OrderTime:             p.OrderTime,
		EstimatedDeliveryTime: p.EstimatedDeliveryTime,
		CheckoutTime:          p.CheckoutTime,
		CancelReason:          p.CancelReason,
		CancelTime:            p.CancelTime,
		Version:               p.Version,
	})
}

func FromItemDomain(item order.Item) OrderItemPO {
	d := item.ToDTO()
	return OrderItemPO{
		ID:        d.ID,
		OrderID:   d.OrderID,
		Name:      d.Name,
		Image:     d.Image,
		DishID:    d.DishID,
		SetmealID: d.SetmealID,
		Flavor:    d.Flavor,
		Quantity:  d.Quantity,
		UnitPrice: d.UnitPrice,
	}
}

func (p OrderItemPO) ToDomain() order.Item {
	return order.RebuildItemFromDTO(order.ItemReconstructionDTO{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Name:      p.Name,
		Image:     p.Image,
		DishID:    p.DishID,
		SetmealID: p.SetmealID,
		Flavor:    p.Flavor,
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice,
	})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
