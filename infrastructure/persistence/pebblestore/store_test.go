package pebblestore

import (
	"context"
	"errors"
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

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newOrder(t *testing.T, number string, orderTime time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.Params{
		Number:        number,
		UserID:        3,
		AddressBookID: 1,
		Lines: []order.Line{
			{Name: "dumplings", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{Name: "soup", Quantity: 1, UnitPrice: decimal.RequireFromString("5.50")},
		},
		OrderTime:             orderTime,
		EstimatedDeliveryTime: orderTime.Add(time.Hour),
	})
	require.NoError(t, err)
	return o
}

func TestOrderRoundTripAndItems(t *testing.T) {
	store := openTestStore(t)
	orders := NewOrderRepository(store)
	items := NewOrderItemRepository(store)
	ctx := context.Background()

	o := newOrder(t, "P1", time.Now())
	require.NoError(t, orders.Insert(ctx, o))
	assert.Equal(t, int64(1), o.ID())
	require.NoError(t, items.InsertBatch(ctx, o.Items()))

	got, err := orders.GetByNumber(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, o.ID(), got.ID())
	assert.Equal(t, "25.50", got.Amount().StringFixed(2))
	assert.True(t, got.OrderTime().Equal(o.OrderTime()))

	lines, err := items.GetByOrderID(ctx, o.ID())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "dumplings", lines[0].Name())
	assert.Equal(t, "soup", lines[1].Name())

	assert.ErrorIs(t, orders.Insert(ctx, newOrder(t, "P1", time.Now())), order.ErrDuplicateNumber)
	_, err = orders.GetByID(ctx, 77)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestUpdateGuardsVersionAndMovesStatusIndex(t *testing.T) {
	store := openTestStore(t)
	orders := NewOrderRepository(store)
	ctx := context.Background()
	now := time.Now()

	o := newOrder(t, "P2", now.Add(-30*time.Minute))
	require.NoError(t, orders.Insert(ctx, o))

	a, err := orders.GetByID(ctx, o.ID())
	require.NoError(t, err)
	b, err := orders.GetByID(ctx, o.ID())
	require.NoError(t, err)

	require.NoError(t, a.MarkPaid(now))
	require.NoError(t, orders.Update(ctx, a))
	require.NoError(t, b.CancelForTimeout(now))
	assert.ErrorIs(t, orders.Update(ctx, b), order.ErrConcurrentModification)

	pending, err := orders.FindByStatusAndCreatedBefore(ctx, order.StatusPendingPayment, now)
	require.NoError(t, err)
	assert.Empty(t, pending)

	confirmed, err := orders.FindByStatusAndCreatedBefore(ctx, order.StatusToBeConfirmed, now)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, 1, confirmed[0].Version())
	assert.True(t, confirmed[0].IsPaid())
}

func TestFindByStatusAndCreatedBeforeIsStrict(t *testing.T) {
	store := openTestStore(t)
	orders := NewOrderRepository(store)
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-15 * time.Minute)

	require.NoError(t, orders.Insert(ctx, newOrder(t, "OLD", now.Add(-20*time.Minute))))
	require.NoError(t, orders.Insert(ctx, newOrder(t, "EDGE", cutoff)))
	require.NoError(t, orders.Insert(ctx, newOrder(t, "NEW", now)))

	found, err := orders.FindByStatusAndCreatedBefore(ctx, order.StatusPendingPayment, cutoff)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "OLD", found[0].Number())
}

func TestUnitOfWorkCommitsAtomically(t *testing.T) {
	store := openTestStore(t)
	orders := NewOrderRepository(store)
	carts := NewCartRepository(store)
	ctx := context.Background()

	_, err := carts.Add(ctx, cart.Item{UserID: 3, Name: "tea", Quantity: 1, UnitPrice: decimal.NewFromInt(4)})
	require.NoError(t, err)

	var published []string
	bus := shared.NewEventBus()
	require.NoError(t, bus.Subscribe(order.EventOrderSubmitted, shared.NewFuncHandler("record", func(_ context.Context, e shared.DomainEvent) error {
		published = append(published, e.AggregateID())
		return nil
	})))
	factory := NewUnitOfWorkFactory(store, bus, retry.DefaultConfig)

	boom := errors.New("boom")
	uow := factory.New()
	err = uow.Execute(ctx, func(ctx context.Context) error {
		o := newOrder(t, "TX1", time.Now())
		if err := orders.Insert(ctx, o); err != nil {
			return err
		}
		uow.RegisterNew(o)
		seen, err := orders.GetByNumber(ctx, "TX1")
		require.NoError(t, err, "batch reads see pending writes")
		assert.Equal(t, o.ID(), seen.ID())
		if err := carts.DeleteByUserID(ctx, 3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, published)
	_, err = orders.GetByNumber(ctx, "TX1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	lines, err := carts.ListByUserID(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	uow = factory.New()
	require.NoError(t, uow.Execute(ctx, func(ctx context.Context) error {
		o := newOrder(t, "TX2", time.Now())
		if err := orders.Insert(ctx, o); err != nil {
			return err
		}
		uow.RegisterNew(o)
		return carts.DeleteByUserID(ctx, 3)
	}))
	assert.Equal(t, []string{"TX2"}, published)
	lines, err = carts.ListByUserID(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestUserAndAddressBook(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	users := NewUserRepository(store)
	u, err := user.NewUser(0, "wx-open-id", "Han Meimei", "13900000000")
	require.NoError(t, err)
	require.NoError(t, users.Save(ctx, u))
	loaded, err := users.GetByID(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, "wx-open-id", loaded.OpenID())

	book := NewAddressBookRepository(store)
	saved, err := book.Save(ctx, addressbook.Address{UserID: u.ID(), Consignee: "Han Meimei", City: "Hangzhou", Detail: "West Lake Rd 1"})
	require.NoError(t, err)
	got, err := book.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hangzhou West Lake Rd 1", got.Full())

	_, err = book.GetByID(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
