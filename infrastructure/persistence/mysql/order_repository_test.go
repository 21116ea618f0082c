package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"orderhub/domain/cart"
	"orderhub/domain/order"
	"orderhub/domain/shared"
	"orderhub/infrastructure/persistence"
	"orderhub/infrastructure/persistence/retry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), "silent")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newOrder(t *testing.T, number string, orderTime time.Time) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.Params{
		Number:        number,
		UserID:        9,
		AddressBookID: 1,
		Consignee:     "Han Meimei",
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

func TestOrderRepositoryInsertAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	items := NewOrderItemRepository(db)
	ctx := context.Background()

	o := newOrder(t, "N1", time.Now())
	require.NoError(t, repo.Insert(ctx, o))
	require.NotZero(t, o.ID())
	require.NoError(t, items.InsertBatch(ctx, o.Items()))

	byNumber, err := repo.GetByNumber(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, o.ID(), byNumber.ID())
	assert.Equal(t, "25.50", byNumber.Amount().StringFixed(2))
	assert.Equal(t, order.StatusPendingPayment, byNumber.Status())

	stored, err := items.GetByOrderID(ctx, o.ID())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "dumplings", stored[0].Name())
	assert.Equal(t, o.ID(), stored[0].OrderID())

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestOrderRepositoryRejectsDuplicateNumber(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newOrder(t, "DUP", time.Now())))
	err := repo.Insert(ctx, newOrder(t, "DUP", time.Now()))
	assert.ErrorIs(t, err, order.ErrDuplicateNumber)
}

func TestOrderRepositoryUpdateIsVersionGuarded(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	o := newOrder(t, "V1", time.Now())
	require.NoError(t, repo.Insert(ctx, o))

	first, err := repo.GetByID(ctx, o.ID())
	require.NoError(t, err)
	stale, err := repo.GetByID(ctx, o.ID())
	require.NoError(t, err)

	require.NoError(t, first.MarkPaid(time.Now()))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 1, first.Version())

	require.NoError(t, stale.CancelForTimeout(time.Now()))
	err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, order.ErrConcurrentModification)

	final, err := repo.GetByID(ctx, o.ID())
	require.NoError(t, err)
	assert.Equal(t, order.PayStatusPaid, final.PayStatus())
	assert.Equal(t, order.StatusToBeConfirmed, final.Status())
	assert.NotNil(t, final.CheckoutTime())
	assert.Nil(t, final.CancelTime())
}

func TestFindByStatusAndCreatedBefore(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	now := time.Now()

	old := newOrder(t, "OLD", now.Add(-20*time.Minute))
	recent := newOrder(t, "RECENT", now.Add(-10*time.Minute))
	fresh := newOrder(t, "FRESH", now)
	paid := newOrder(t, "PAID", now.Add(-30*time.Minute))
	for _, o := range []*order.Order{old, recent, fresh, paid} {
		require.NoError(t, repo.Insert(ctx, o))
	}
	require.NoError(t, paid.MarkPaid(now))
	require.NoError(t, repo.Update(ctx, paid))

	found, err := repo.FindByStatusAndCreatedBefore(ctx, order.StatusPendingPayment, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "OLD", found[0].Number())
}

func TestUnitOfWorkRollsBackAndPublishesAfterCommit(t *testing.T) {
	db := openTestDB(t)
	orders := NewOrderRepository(db)
	carts := NewCartRepository(db)
	ctx := context.Background()

	_, err := carts.Add(ctx, cart.Item{UserID: 9, Name: "tea", Quantity: 1, UnitPrice: decimal.RequireFromString("3")})
	require.NoError(t, err)

	var published []string
	bus := shared.NewEventBus()
	require.NoError(t, bus.Subscribe("*", shared.NewFuncHandler("record", func(_ context.Context, e shared.DomainEvent) error {
		published = append(published, e.EventName())
		return nil
	})))
	factory := NewUnitOfWorkFactory(db, bus, retry.DefaultConfig)

	boom := errors.New("boom")
	uow := factory.New()
	err = uow.Execute(ctx, func(ctx context.Context) error {
		require.NotNil(t, persistence.TxFromContext(ctx))
		o := newOrder(t, "TX1", time.Now())
		if err := orders.Insert(ctx, o); err != nil {
			return err
		}
		uow.RegisterNew(o)
		if err := carts.DeleteByUserID(ctx, 9); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, published)

	_, err = orders.GetByNumber(ctx, "TX1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	lines, err := carts.ListByUserID(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, lines, 1, "cart clear must roll back")

	uow = factory.New()
	require.NoError(t, uow.Execute(ctx, func(ctx context.Context) error {
		o := newOrder(t, "TX2", time.Now())
		if err := orders.Insert(ctx, o); err != nil {
			return err
		}
		uow.RegisterNew(o)
		return carts.DeleteByUserID(ctx, 9)
	}))
	assert.Equal(t, []string{order.EventOrderSubmitted}, published)
	lines, err = carts.ListByUserID(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
