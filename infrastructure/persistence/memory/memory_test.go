package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/order"
	"orderhub/domain/shared"
	"orderhub/domain/user"
	"orderhub/infrastructure/persistence/retry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T, number string, orderTime time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.Params{
		Number:        number,
		UserID:        7,
		AddressBookID: 1,
		Lines: []order.Line{
			{Name: "noodles", Quantity: 1, UnitPrice: decimal.RequireFromString("12.00")},
		},
		OrderTime:             orderTime,
		EstimatedDeliveryTime: orderTime.Add(time.Hour),
	})
	require.NoError(t, err)
	return o
}

func TestOrderRepositoryReturnsSnapshots(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	o := newOrder(t, "S1", time.Now())
	require.NoError(t, repo.Insert(ctx, o))
	assert.Equal(t, int64(1), o.ID())

	loaded, err := repo.GetByNumber(ctx, "S1")
	require.NoError(t, err)
	require.NoError(t, loaded.MarkPaid(time.Now()))

	again, err := repo.GetByID(ctx, o.ID())
	require.NoError(t, err)
	assert.False(t, again.IsPaid(), "unsaved mutation must not leak into the store")

	err = repo.Insert(ctx, newOrder(t, "S1", time.Now()))
	assert.ErrorIs(t, err, order.ErrDuplicateNumber)

	_, err = repo.GetByNumber(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderRepositoryUpdateVersionCheck(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	o := newOrder(t, "V1", time.Now())
	require.NoError(t, repo.Insert(ctx, o))

	a, _ := repo.GetByID(ctx, o.ID())
	b, _ := repo.GetByID(ctx, o.ID())

	require.NoError(t, a.MarkPaid(time.Now()))
	require.NoError(t, repo.Update(ctx, a))

	require.NoError(t, b.CancelForTimeout(time.Now()))
	assert.ErrorIs(t, repo.Update(ctx, b), order.ErrConcurrentModification)

	stored, _ := repo.GetByID(ctx, o.ID())
	assert.Equal(t, order.StatusToBeConfirmed, stored.Status())
	assert.Equal(t, 1, stored.Version())
}

func TestFindByStatusAndCreatedBeforeIsSelective(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	now := time.Now()

	for number, age := range map[string]time.Duration{"A": 20 * time.Minute, "B": 16 * time.Minute, "C": 5 * time.Minute} {
		require.NoError(t, repo.Insert(ctx, newOrder(t, number, now.Add(-age))))
	}
	paid := newOrder(t, "P", now.Add(-time.Hour))
	require.NoError(t, repo.Insert(ctx, paid))
	require.NoError(t, paid.MarkPaid(now))
	require.NoError(t, repo.Update(ctx, paid))

	found, err := repo.FindByStatusAndCreatedBefore(ctx, order.StatusPendingPayment, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "A", found[0].Number())
	assert.Equal(t, "B", found[1].Number())
}

func TestConcurrentInsertsAllocateDistinctIDs(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := newOrder(t, fmt.Sprintf("C%03d", i), time.Now())
			assert.NoError(t, repo.Insert(ctx, o))
			ids[i] = o.ID()
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestItemCartAddressAndUserRepositories(t *testing.T) {
	ctx := context.Background()

	items := NewOrderItemRepository()
	o := newOrder(t, "I1", time.Now())
	o.AssignID(42)
	require.NoError(t, items.InsertBatch(ctx, o.Items()))
	stored, err := items.GetByOrderID(ctx, 42)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "noodles", stored[0].Name())
	assert.NotZero(t, stored[0].ID())

	carts := NewCartRepository()
	_, err = carts.Add(ctx, cart.Item{UserID: 7, Name: "tea", Quantity: 2, UnitPrice: decimal.NewFromInt(3)})
	require.NoError(t, err)
	_, err = carts.Add(ctx, cart.Item{UserID: 7, Name: "bad", Quantity: 0, UnitPrice: decimal.NewFromInt(3)})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	lines, _ := carts.ListByUserID(ctx, 7)
	assert.Len(t, lines, 1)
	require.NoError(t, carts.DeleteByUserID(ctx, 7))
	lines, _ = carts.ListByUserID(ctx, 7)
	assert.Empty(t, lines)

	book := NewAddressBookRepository()
	saved, err := book.Save(ctx, addressbook.Address{UserID: 7, Consignee: "Li Lei", Phone: "13800000000", Detail: "No. 1 Road"})
	require.NoError(t, err)
	got, err := book.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Li Lei", got.Consignee)
	_, err = book.GetByID(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	users := NewUserRepository()
	u, err := user.NewUser(0, "open-id", "Li Lei", "13800000000")
	require.NoError(t, err)
	require.NoError(t, users.Save(ctx, u))
	assert.Equal(t, int64(1), u.ID())
	_, err = users.GetByID(ctx, 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUnitOfWorkPublishesOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	var published []string
	bus := shared.NewEventBus()
	require.NoError(t, bus.Subscribe("*", shared.NewFuncHandler("record", func(_ context.Context, e shared.DomainEvent) error {
		published = append(published, e.EventName())
		return nil
	})))
	factory := NewUnitOfWorkFactory(bus, retry.DefaultConfig)

	uow := factory.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		o := newOrder(t, "U1", time.Now())
		uow.RegisterNew(o)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, published)

	uow = factory.New()
	require.NoError(t, uow.Execute(ctx, func(ctx context.Context) error {
		o := newOrder(t, "U2", time.Now())
		if err := repo.Insert(ctx, o); err != nil {
			return err
		}
		uow.RegisterNew(o)
		return nil
	}))
	assert.Equal(t, []string{order.EventOrderSubmitted}, published)
}
