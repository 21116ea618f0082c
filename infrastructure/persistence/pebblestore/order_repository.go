package pebblestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"orderhub/domain/order"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"
)

type orderRecord struct {
	ID                    int64           `json:"id"`
	Number                string          `json:"number"`
	UserID                int64           `json:"user_id"`
	AddressBookID         int64           `json:"address_book_id"`
	Consignee             string          `json:"consignee"`
	Phone                 string          `json:"phone"`
	Address               string          `json:"address"`
	Remark                string          `json:"remark,omitempty"`
	Status                string          `json:"status"`
	PayStatus             string          `json:"pay_status"`
	Amount                decimal.Decimal `json:"amount"`
	OrderTime             time.Time       `json:"order_time"`
	EstimatedDeliveryTime time.Time       `json:"estimated_delivery_time"`
	CheckoutTime          *time.Time      `json:"checkout_time,omitempty"`
	CancelReason          string          `json:"cancel_reason,omitempty"`
	CancelTime            *time.Time      `json:"cancel_time,omitempty"`
	Version               int             `json:"version"`
}

func toOrderRecord(o *order.Order) orderRecord {
	d := o.ToDTO()
	return orderRecord{
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

func (r orderRecord) toDomain() *order.Order {
	return order.RebuildFromDTO(order.ReconstructionDTO{
		ID:                    r.ID,
		Number:                r.Number,
		UserID:                r.UserID,
		AddressBookID:         r.AddressBookID,
		Consignee:             r.Consignee,
		Phone:                 r.Phone,
		Address:               r.Address,
		Remark:                r.Remark,
		Status:                order.Status(r.Status),
		PayStatus:             order.PayStatus(r.PayStatus),
		Amount:                r.Amount,
		OrderTime:             r.OrderTime,
		EstimatedDeliveryTime: r.EstimatedDeliveryTime,
		CheckoutTime:          r.CheckoutTime,
		CancelReason:          r.CancelReason,
		CancelTime:            r.CancelTime,
		Version:               r.Version,
	})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func orderKey(id int64) []byte           { return []byte("o:" + padded(id)) }
func orderNumberKey(n string) []byte     { return []byte("on:" + n) }
func statusPrefix(s order.Status) string { return "os:" + string(s) + ":" }
func statusKey(r orderRecord) []byte {
	return []byte(statusPrefix(order.Status(r.Status)) + padded(r.OrderTime.UnixNano()) + ":" + padded(r.ID))
}

type OrderRepository struct {
	store *Store
}

func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	return r.store.update(ctx, func(b *pebble.Batch) error {
		_, closer, err := b.Get(orderNumberKey(o.Number()))
		if err == nil {
			closer.Close()
			return order.NewDuplicateNumberError(o.Number())
		}
		if err != pebble.ErrNotFound {
			return fmt.Errorf("failed to check order number: %w", err)
		}

		id, err := nextID(b, "orders")
		if err != nil {
			return err
		}
		o.AssignID(id)

		rec := toOrderRecord(o)
		if err := setJSON(b, orderKey(id), rec); err != nil {
			return err
		}
		if err := b.Set(orderNumberKey(o.Number()), []byte(strconv.FormatInt(id, 10)), nil); err != nil {
			return err
		}
		return b.Set(statusKey(rec), nil, nil)
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var rec orderRecord
	found, err := getJSON(r.store.reader(ctx), orderKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, order.NewOrderNotFoundError(strconv.FormatInt(id, 10))
	}
	return rec.toDomain(), nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	data, closer, err := r.store.reader(ctx).Get(orderNumberKey(number))
	if err == pebble.ErrNotFound {
		return nil, order.NewOrderNotFoundError(number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order number index: %w", err)
	}
	id, perr := strconv.ParseInt(string(data), 10, 64)
	closer.Close()
	if perr != nil {
		return nil, fmt.Errorf("corrupt order number index for %s: %w", number, perr)
	}
	return r.GetByID(ctx, id)
}

// Update writes the transition fields when the stored version still matches
// and moves the status index entry.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	err := r.store.update(ctx, func(b *pebble.Batch) error {
		var current orderRecord
		found, err := getJSON(b, orderKey(o.ID()), &current)
		if err != nil {
			return err
		}
		if !found {
			return order.NewOrderNotFoundError(strconv.FormatInt(o.ID(), 10))
		}
		if current.Version != o.Version() {
			return order.NewConcurrentModificationError(o.Number())
		}

		next := toOrderRecord(o)
		if err := b.Delete(statusKey(current), nil); err != nil {
			return err
		}
		current.Status = next.Status
		current.PayStatus = next.PayStatus
		current.CheckoutTime = next.CheckoutTime
		current.CancelReason = next.CancelReason
		current.CancelTime = next.CancelTime
		current.Version++

		if err := setJSON(b, orderKey(current.ID), current); err != nil {
			return err
		}
		return b.Set(statusKey(current), nil, nil)
	})
	if err != nil {
		return err
	}
	o.IncrementVersionForSave()
	return nil
}

// FindByStatusAndCreatedBefore walks the status index up to cutoff, so only
// matching orders are read.
func (r *OrderRepository) FindByStatusAndCreatedBefore(ctx context.Context, status order.Status, cutoff time.Time) ([]*order.Order, error) {
	rd := r.store.reader(ctx)
	lower := []byte(statusPrefix(status))
	upper := []byte(statusPrefix(status) + padded(cutoff.UTC().UnixNano()))

	var ids []int64
	iter, err := rd.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to open status index: %w", err)
	}
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		id, err := strconv.ParseInt(string(key[len(key)-20:]), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

type itemRecord struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	DishID    int64           `json:"dish_id,omitempty"`
	SetmealID int64           `json:"setmeal_id,omitempty"`
	Flavor    string          `json:"flavor,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func itemPrefix(orderID int64) []byte { return []byte("oi:" + padded(orderID) + ":") }

type OrderItemRepository struct {
	store *Store
}

func NewOrderItemRepository(store *Store) *OrderItemRepository {
	return &OrderItemRepository{store: store}
}

func (r *OrderItemRepository) InsertBatch(ctx context.Context, items []order.Item) error {
	return r.store.update(ctx, func(b *pebble.Batch) error {
		for _, item := range items {
			d := item.ToDTO()
			id, err := nextID(b, "order_items")
			if err != nil {
				return err
			}
			rec := itemRecord(d)
			rec.ID = id
			key := append(itemPrefix(d.OrderID), padded(id)...)
			if err := setJSON(b, key, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrderItemRepository) GetByOrderID(ctx context.Context, orderID int64) ([]order.Item, error) {
	prefix := itemPrefix(orderID)
	var items []order.Item
	err := scanJSON(r.store.reader(ctx), prefix, keyUpperBound(prefix), func(value []byte) error {
		var rec itemRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal order item: %w", err)
		}
		items = append(items, order.RebuildItemFromDTO(order.ItemReconstructionDTO(rec)))
		return nil
	})
	return items, err
}

var (
	_ order.Repository     = (*OrderRepository)(nil)
	_ order.ItemRepository = (*OrderItemRepository)(nil)
)
