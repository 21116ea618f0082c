/*
Package order is the order subdomain.

Order is the aggregate root. Its fields are private; state only changes
through the named transitions MarkPaid and CancelForTimeout, each of which
writes status, pay status and timestamps together and records an event.
Orders are never deleted.
*/
package order

import (
	"strconv"
	"time"

	"orderhub/domain/shared"

	"github.com/shopspring/decimal"
)

// Status Order status
type Status string

const (
	StatusPendingPayment     Status = "PENDING_PAYMENT"
	StatusToBeConfirmed      Status = "TO_BE_CONFIRMED"
	StatusConfirmed          Status = "CONFIRMED"
	StatusDeliveryInProgress Status = "DELIVERY_IN_PROGRESS"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
)

// PayStatus Payment status
type PayStatus string

const (
	PayStatusUnpaid PayStatus = "UNPAID"
	PayStatusPaid   PayStatus = "PAID"
)

// TimeoutCancelReason is stamped on orders cancelled by the sweeper.
const TimeoutCancelReason = "order timed out, auto-cancelled"

// Order Order aggregate root
type Order struct {
	id                    int64
	number                string
	userID                int64
	addressBookID         int64
	consignee             string
	phone                 string
	address               string
	remark                string
	status                Status
	payStatus             PayStatus
	amount                decimal.Decimal
	orderTime             time.Time
	estimatedDeliveryTime time.Time
	checkoutTime          *time.Time
	cancelReason          string
	cancelTime            *time.Time
	version               int

	items  []Item
	events []shared.DomainEvent
}

// Item Order line. Subtotal is unit price times quantity.
type Item struct {
	id        int64
	orderID   int64
	name      string
	image     string
	dishID    int64
	setmealID int64
	flavor    string
	quantity  int
	unitPrice decimal.Decimal
}

// Line is the input for one order line, usually copied from a cart line.
type Line struct {
	Name      string
	Image     string
	DishID    int64
	SetmealID int64
	Flavor    string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Params Create order options
type Params struct {
	Number                string
	UserID                int64
	AddressBookID         int64
	Consignee             string
	Phone                 string
	Address               string
	Remark                string
	Lines                 []Line
	Amount                *decimal.Decimal // nil means sum of lines
	OrderTime             time.Time
	EstimatedDeliveryTime time.Time
}

// ============================================================================
// Factory
// ============================================================================

// NewOrder creates an order in PENDING_PAYMENT / UNPAID.
func NewOrder(p Params) (*Order, error) {
	if p.Number == "" {
		return nil, shared.NewValidationError("order", "number", "order number is required")
	}
	if p.UserID <= 0 {
		return nil, shared.NewValidationError("order", "user_id", "user id must be positive")
	}
	if len(p.Lines) == 0 {
		return nil, NewEmptyOrderItemsError()
	}

	items := make([]Item, len(p.Lines))
	for i, l := range p.Lines {
		if l.Quantity <= 0 {
			return nil, NewInvalidQuantityError(l.Name, l.Quantity)
		}
		if l.UnitPrice.IsNegative() {
			return nil, shared.NewValidationError("order", "unit_price", "unit price must not be negative")
		}
		items[i] = Item{
			name:      l.Name,
			image:     l.Image,
			dishID:    l.DishID,
			setmealID: l.SetmealID,
			flavor:    l.Flavor,
			quantity:  l.Quantity,
			unitPrice: l.UnitPrice,
		}
	}

	amount := SumLines(p.Lines)
	if p.Amount != nil {
		amount = *p.Amount
	}
	if amount.IsNegative() {
		return nil, shared.NewValidationError("order", "amount", "order amount must not be negative")
	}

	orderTime := p.OrderTime
	if orderTime.IsZero() {
		orderTime = time.Now()
	}

	o := &Order{
		number:                p.Number,
		userID:                p.UserID,
		addressBookID:         p.AddressBookID,
		consignee:             p.Consignee,
		phone:                 p.Phone,
		address:               p.Address,
		remark:                p.Remark,
		status:                StatusPendingPayment,
		payStatus:             PayStatusUnpaid,
		amount:                amount.Round(2),
		orderTime:             orderTime,
		estimatedDeliveryTime: p.EstimatedDeliveryTime,
		items:                 items,
	}
	o.events = append(o.events, NewOrderSubmittedEvent(o.number, o.userID, o.amount, orderTime))
	return o, nil
}

// SumLines returns the sum of unit price times quantity over lines.
func SumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}

// ============================================================================
// Reconstruction, repository use only
// ============================================================================

type ReconstructionDTO struct {
	ID                    int64
	Number                string
	UserID                int64
	AddressBookID         int64
	Consignee             string
	Phone                 string
	Address               string
	Remark                string
	Status                Status
	PayStatus             PayStatus
	Amount                decimal.Decimal
	OrderTime             time.Time
	EstimatedDeliveryTime time.Time
	CheckoutTime          *time.Time
	CancelReason          string
	CancelTime            *time.Time
	Version               int
}

func RebuildFromDTO(dto ReconstructionDTO) *Order {
	return &Order{
		id:                    dto.ID,
		number:                dto.Number,
		userID:                dto.UserID,
		addressBookID:         dto.AddressBookID,
		consignee:             dto.Consignee,
		phone:                 dto.Phone,
		address:               dto.Address,
		remark:                dto.Remark,
		status:                dto.Status,
		payStatus:             dto.PayStatus,
		amount:                dto.Amount,
		orderTime:             dto.OrderTime,
		estimatedDeliveryTime: dto.EstimatedDeliveryTime,
		checkoutTime:          copyTime(dto.CheckoutTime),
		cancelReason:          dto.CancelReason,
		cancelTime:            copyTime(dto.CancelTime),
		version:               dto.Version,
	}
}

// ToDTO snapshots the order for persistence.
func (o *Order) ToDTO() ReconstructionDTO {
	return ReconstructionDTO{
		ID:                    o.id,
		Number:                o.number,
		UserID:                o.userID,
		AddressBookID:         o.addressBookID,
		Consignee:             o.consignee,
		Phone:                 o.phone,
		Address:               o.address,
		Remark:                o.remark,
		Status:                o.status,
		PayStatus:             o.payStatus,
		Amount:                o.amount,
		OrderTime:             o.orderTime,
		EstimatedDeliveryTime: o.estimatedDeliveryTime,
		CheckoutTime:          copyTime(o.checkoutTime),
		CancelReason:          o.cancelReason,
		CancelTime:            copyTime(o.cancelTime),
		Version:               o.version,
	}
}

type ItemReconstructionDTO struct {
	ID        int64
	OrderID   int64
	Name      string
	Image     string
	DishID    int64
	SetmealID int64
	Flavor    string
	Quantity  int
	UnitPrice decimal.Decimal
}

func RebuildItemFromDTO(dto ItemReconstructionDTO) Item {
	return Item{
		id:        dto.ID,
		orderID:   dto.OrderID,
		name:      dto.Name,
		image:     dto.Image,
		dishID:    dto.DishID,
		setmealID: dto.SetmealID,
		flavor:    dto.Flavor,
		quantity:  dto.Quantity,
		unitPrice: dto.UnitPrice,
	}
}

func (item Item) ToDTO() ItemReconstructionDTO {
	return ItemReconstructionDTO{
		ID:        item.id,
		OrderID:   item.orderID,
		Name:      item.name,
		Image:     item.image,
		DishID:    item.dishID,
		SetmealID: item.setmealID,
		Flavor:    item.flavor,
		Quantity:  item.quantity,
		UnitPrice: item.unitPrice,
	}
}

// AssignID is called by Repository.Insert once storage has allocated the id.
// It also stamps the id on the pending line items.
func (o *Order) AssignID(id int64) {
	o.id = id
	for i := range o.items {
		o.items[i].orderID = id
	}
}

// IncrementVersionForSave is called by Repository.Update after a successful write.
func (o *Order) IncrementVersionForSave() {
	o.version++
}

// ============================================================================
// Transitions
// ============================================================================

// MarkPaid moves an unpaid PENDING_PAYMENT order to TO_BE_CONFIRMED / PAID.
func (o *Order) MarkPaid(now time.Time) error {
	if o.payStatus == PayStatusPaid {
		return NewAlreadyPaidError(o.number)
	}
	if o.status != StatusPendingPayment {
		return NewInvalidOrderStateError(o.number, string(o.status), string(StatusToBeConfirmed))
	}

	paidAt := now
	o.status = StatusToBeConfirmed
	o.payStatus = PayStatusPaid
	o.checkoutTime = &paidAt
	o.events = append(o.events, NewOrderPaidEvent(o.number, o.id, o.userID, o.amount, now))
	return nil
}

// CancelForTimeout cancels an unpaid PENDING_PAYMENT order.
// A paid order is never cancelled here.
func (o *Order) CancelForTimeout(now time.Time) error {
	if o.payStatus == PayStatusPaid {
		return NewAlreadyPaidError(o.number)
	}
	if o.status != StatusPendingPayment {
		return NewInvalidOrderStateError(o.number, string(o.status), string(StatusCancelled))
	}

	cancelledAt := now
	o.status = StatusCancelled
	o.cancelReason = TimeoutCancelReason
	o.cancelTime = &cancelledAt
	o.events = append(o.events, NewOrderCancelledEvent(o.number, o.id, o.userID, TimeoutCancelReason, now))
	return nil
}

// IsExpired reports whether the order is still awaiting payment and older than deadline at now.
func (o *Order) IsExpired(now time.Time, deadline time.Duration) bool {
	return o.status == StatusPendingPayment &&
		o.payStatus == PayStatusUnpaid &&
		now.Sub(o.orderTime) > deadline
}

// ============================================================================
// Getters
// ============================================================================

func (o *Order) ID() int64                        { return o.id }
func (o *Order) Number() string                   { return o.number }
func (o *Order) UserID() int64                    { return o.userID }
func (o *Order) AddressBookID() int64             { return o.addressBookID }
func (o *Order) Consignee() string                { return o.consignee }
func (o *Order) Phone() string                    { return o.phone }
func (o *Order) Address() string                  { return o.address }
func (o *Order) Remark() string                   { return o.remark }
func (o *Order) Status() Status                   { return o.status }
func (o *Order) PayStatus() PayStatus             { return o.payStatus }
func (o *Order) Amount() decimal.Decimal          { return o.amount }
func (o *Order) OrderTime() time.Time             { return o.orderTime }
func (o *Order) EstimatedDeliveryTime() time.Time { return o.estimatedDeliveryTime }
func (o *Order) CheckoutTime() *time.Time         { return copyTime(o.checkoutTime) }
func (o *Order) CancelReason() string             { return o.cancelReason }
func (o *Order) CancelTime() *time.Time           { return copyTime(o.cancelTime) }
func (o *Order) Version() int                     { return o.version }
func (o *Order) IsPaid() bool                     { return o.payStatus == PayStatusPaid }

// Items returns the lines created with the order. Orders loaded from storage
// have no items attached; use ItemRepository.GetByOrderID.
func (o *Order) Items() []Item {
	items := make([]Item, len(o.items))
	copy(items, o.items)
	return items
}

// AggregateID is the order number; it exists before storage assigns the numeric id.
func (o *Order) AggregateID() string {
	if o.number != "" {
		return o.number
	}
	return strconv.FormatInt(o.id, 10)
}

func (o *Order) PullEvents() []shared.DomainEvent {
	events := o.events
	o.events = nil
	return events
}

func (item Item) ID() int64                  { return item.id }
func (item Item) OrderID() int64             { return item.orderID }
func (item Item) Name() string               { return item.name }
func (item Item) Image() string              { return item.image }
func (item Item) DishID() int64              { return item.dishID }
func (item Item) SetmealID() int64           { return item.setmealID }
func (item Item) Flavor() string             { return item.flavor }
func (item Item) Quantity() int              { return item.quantity }
func (item Item) UnitPrice() decimal.Decimal { return item.unitPrice }
func (item Item) Subtotal() decimal.Decimal {
	return item.unitPrice.Mul(decimal.NewFromInt(int64(item.quantity)))
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ shared.AggregateRoot = (*Order)(nil)
