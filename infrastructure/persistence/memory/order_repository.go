// Package memory keeps every aggregate in process memory. It backs
// database.type=memory and the application tests. Stored values are
// snapshots, so callers never share state through returned pointers.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"orderhub/domain/order"
	"orderhub/domain/shared"
)

// OrderRepository In-memory implementation of order repository
type OrderRepository struct {
	mu       sync.RWMutex
	nextID   int64
	orders   map[int64]order.ReconstructionDTO
	byNumber map[string]int64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   make(map[int64]order.ReconstructionDTO),
		byNumber: make(map[string]int64),
	}
}

func (r *OrderRepository) Insert(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byNumber[o.Number()]; taken {
		return order.NewDuplicateNumberError(o.Number())
	}
	r.nextID++
	o.AssignID(r.nextID)
	r.orders[o.ID()] = o.ToDTO()
	r.byNumber[o.Number()] = o.ID()
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dto, ok := r.orders[id]
	if !ok {
		return nil, order.NewOrderNotFoundError(strconv.FormatInt(id, 10))
	}
	return order.RebuildFromDTO(dto), nil
}

func (r *OrderRepository) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return nil, order.NewOrderNotFoundError(number)
	}
	return order.RebuildFromDTO(r.orders[id]), nil
}

// Update mirrors the SQL implementation: only transition fields change and
// the write is rejected when the stored version moved on.
func (r *OrderRepository) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.orders[o.ID()]
	if !ok {
		return order.NewOrderNotFoundError(strconv.FormatInt(o.ID(), 10))
	}
	if existing.Version != o.Version() {
		return order.NewConcurrentModificationError(o.Number())
	}

	next := o.ToDTO()
	existing.Status = next.Status
	existing.PayStatus = next.PayStatus
	existing.CheckoutTime = next.CheckoutTime
	existing.CancelReason = next.CancelReason
	existing.CancelTime = next.CancelTime
	existing.Version++
	r.orders[o.ID()] = existing

	o.IncrementVersionForSave()
	return nil
}

func (r *OrderRepository) FindByStatusAndCreatedBefore(ctx context.Context, status order.Status, cutoff time.Time) ([]*order.Order, error) {
	return r.FindBySpecification(ctx, order.NewStatusCreatedBeforeSpecification(status, cutoff))
}

// FindBySpecification evaluates spec against every stored order, oldest first.
func (r *OrderRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*order.Order]) ([]*order.Order, error) {
	r.mu.RLock()
	all := make([]*order.Order, 0, len(r.orders))
	for _, dto := range r.orders {
		all = append(all, order.RebuildFromDTO(dto))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].OrderTime().Equal(all[j].OrderTime()) {
			return all[i].OrderTime().Before(all[j].OrderTime())
		}
		return all[i].ID() < all[j].ID()
	})
	return shared.Filter(ctx, spec, all), nil
}

// OrderItemRepository In-memory line items
type OrderItemRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64][]order.ItemReconstructionDTO
}

func NewOrderItemRepository() *OrderItemRepository {
	return &OrderItemRepository{items: make(map[int64][]order.ItemReconstructionDTO)}
}

func (r *OrderItemRepository) InsertBatch(_ context.Context, items []order.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		dto := item.ToDTO()
		r.nextID++
		dto.ID = r.nextID
		r.items[dto.OrderID] = append(r.items[dto.OrderID], dto)
	}
	return nil
}

func (r *OrderItemRepository) GetByOrderID(_ context.Context, orderID int64) ([]order.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dtos := r.items[orderID]
	items := make([]order.Item, len(dtos))
	for i, dto := range dtos {
		items[i] = order.RebuildItemFromDTO(dto)
	}
	return items, nil
}

var (
	_ order.Repository     = (*OrderRepository)(nil)
	_ order.ItemRepository = (*OrderItemRepository)(nil)
)
