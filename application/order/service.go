/*
Package order orchestrates the order lifecycle: submission, payment requests,
payment completion and timeout cancellation.

Transitions on one order are serialized by a per-order lock and guarded by
the repository's version check. Each transition re-reads the order inside its
unit of work, so a retried unit of work sees the latest state. Notifications
go out only after the unit of work committed and never fail the transition.
*/
package order

import (
	"context"
	"errors"
	"time"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/order"
	"orderhub/domain/shared"
	"orderhub/domain/user"
	"orderhub/infrastructure/payment"
	"orderhub/infrastructure/persistence/retry"
	"orderhub/pkg/clock"
	"orderhub/pkg/keylock"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

type ApplicationService struct {
	orders     order.Repository
	items      order.ItemRepository
	carts      cart.Repository
	addresses  addressbook.Repository
	users      user.Repository
	uowFactory shared.UnitOfWorkFactory

	numbers     *order.NumberGenerator
	gateway     PaymentGateway
	notifier    Notifier
	locks       *keylock.Locker[int64]
	clock       clock.Clock
	retryConfig retry.Config
	cfg         Config
}

type Dependencies struct {
	Orders      order.Repository
	Items       order.ItemRepository
	Carts       cart.Repository
	Addresses   addressbook.Repository
	Users       user.Repository
	UoWFactory  shared.UnitOfWorkFactory
	Gateway     PaymentGateway
	Notifier    Notifier
	Clock       clock.Clock
	RetryConfig retry.Config
}

func NewApplicationService(deps Dependencies, cfg Config) *ApplicationService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.DeliveryLead <= 0 {
		cfg.DeliveryLead = time.Hour
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 15 * time.Minute
	}
	return &ApplicationService{
		orders:      deps.Orders,
		items:       deps.Items,
		carts:       deps.Carts,
		addresses:   deps.Addresses,
		users:       deps.Users,
		uowFactory:  deps.UoWFactory,
		numbers:     order.NewNumberGenerator(clk.Now),
		gateway:     deps.Gateway,
		notifier:    deps.Notifier,
		locks:       keylock.New[int64](),
		clock:       clk,
		retryConfig: deps.RetryConfig,
		cfg:         cfg,
	}
}

// Submit creates a PENDING_PAYMENT order from the user's cart. The order,
// its lines and the cart clear commit together; a number collision retries
// with a fresh number.
func (s *ApplicationService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	log := logger.FromContext(ctx).With(zap.Int64("user_id", req.UserID))

	if req.UserID <= 0 {
		return nil, shared.NewValidationError("order", "user_id", "user id is required")
	}
	addr, err := s.addresses.GetByID(ctx, req.AddressBookID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if addr == nil || addr.UserID != req.UserID {
		return nil, shared.NewValidationError("order", "address_book_id", "address book entry not found")
	}

	cartItems, err := s.carts.ListByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, shared.NewValidationError("order", "cart", "shopping cart is empty")
	}

	now := s.clock.Now()
	estimated := now.Add(s.cfg.DeliveryLead)
	if req.EstimatedDeliveryTime != nil {
		estimated = *req.EstimatedDeliveryTime
	}

	var created *order.Order
	submitOnce := func(ctx context.Context) error {
		o, err := order.NewOrder(order.Params{
			Number:                s.numbers.Next(),
			UserID:                req.UserID,
			AddressBookID:         addr.ID,
			Consignee:             addr.Consignee,
			Phone:                 addr.Phone,
			Address:               addr.Full(),
			Remark:                req.Remark,
			Lines:                 toLines(cartItems),
			Amount:                req.Amount,
			OrderTime:             now,
			EstimatedDeliveryTime: estimated,
		})
		if err != nil {
			return err
		}

		uow := s.uowFactory.New()
		err = uow.Execute(ctx, func(ctx context.Context) error {
			if err := s.orders.Insert(ctx, o); err != nil {
				return err
			}
			if err := s.items.InsertBatch(ctx, o.Items()); err != nil {
				return err
			}
			if err := s.carts.DeleteByUserID(ctx, req.UserID); err != nil {
				return err
			}
			uow.RegisterNew(o)
			return nil
		})
		if err != nil {
			if errors.Is(err, order.ErrDuplicateNumber) {
				log.Warn("order number collision, retrying", zap.String("order_number", o.Number()))
			}
			return err
		}
		created = o
		return nil
	}

	cfg := s.retryConfig.WithPredicate(func(err error) bool { return errors.Is(err, order.ErrDuplicateNumber) })
	if err := retry.ExecuteWithRetry(ctx, cfg, submitOnce); err != nil {
		return nil, err
	}

	log.Info("order submitted",
		zap.String("order_number", created.Number()),
		zap.String("amount", created.Amount().StringFixed(2)))
	return toSubmitResponse(created), nil
}

// RequestPayment issues a payment intent for an unpaid order of the caller.
func (s *ApplicationService) RequestPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	log := logger.FromContext(ctx).With(zap.String("order_number", req.OrderNumber))

	o, err := s.orders.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, err
	}
	if o.UserID() != req.UserID {
		return nil, order.NewOrderNotFoundError(req.OrderNumber)
	}
	if o.IsPaid() {
		return nil, order.NewAlreadyPaidError(o.Number())
	}
	if o.Status() != order.StatusPendingPayment {
		return nil, order.NewInvalidOrderStateError(o.Number(), string(o.Status()), string(order.StatusToBeConfirmed))
	}

	var payer string
	if u, err := s.users.GetByID(ctx, req.UserID); err == nil {
		payer = u.OpenID()
	} else {
		log.Warn("payer identity unavailable", zap.Int64("user_id", req.UserID), zap.Error(err))
	}

	intent, err := s.gateway.Pay(ctx, payment.PayRequest{
		OrderNumber: o.Number(),
		Amount:      o.Amount(),
		Description: s.cfg.PaymentDescription,
		PayerID:     payer,
	})
	if err != nil {
		return nil, err
	}
	if intent.Code == payment.CodeOrderPaid {
		return nil, order.NewAlreadyPaidError(o.Number())
	}
	return toPaymentResponse(intent), nil
}

// CompletePayment records a successful payment for orderNumber. It is the
// single entry point for provider webhooks and simulated callbacks and is
// idempotent: unknown numbers, paid orders and cancelled orders are logged
// and return nil. Only storage failures are returned.
func (s *ApplicationService) CompletePayment(ctx context.Context, orderNumber string) error {
	log := logger.FromContext(ctx).With(zap.String("order_number", orderNumber))

	found, err := s.orders.GetByNumber(ctx, orderNumber)
	if errors.Is(err, order.ErrOrderNotFound) {
		log.Warn("payment completion for unknown order ignored")
		return nil
	}
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(found.ID())
	defer unlock()

	var paid *order.Order
	uow := s.uowFactory.New()
	err = uow.Execute(ctx, func(ctx context.Context) error {
		paid = nil
		o, err := s.orders.GetByID(ctx, found.ID())
		if err != nil {
			return err
		}
		switch {
		case o.IsPaid():
			log.Info("order already paid, completion ignored")
			return nil
		case o.Status() == order.StatusCancelled:
			log.Warn("payment received for cancelled order, refund required",
				zap.String("cancel_reason", o.CancelReason()))
			return nil
		case o.Status() != order.StatusPendingPayment:
			log.Warn("payment completion ignored", zap.String("status", string(o.Status())))
			return nil
		}

		if err := o.MarkPaid(s.clock.Now()); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		paid = o
		return nil
	})
	if err != nil {
		log.Error("payment completion failed", zap.Error(err))
		return err
	}
	if paid == nil {
		return nil
	}

	log.Info("order paid", zap.Int64("order_id", paid.ID()), zap.Int64("user_id", paid.UserID()))
	s.notifier.PaymentSuccess(paid.UserID(), paid.Number(), paymentSuccessData(paid))
	s.notifier.NewOrder(newOrderData(paid))
	return nil
}

// CancelIfExpired cancels the order when it is still unpaid PENDING_PAYMENT
// and older than deadline at now. It reports whether it cancelled.
func (s *ApplicationService) CancelIfExpired(ctx context.Context, orderID int64, now time.Time, deadline time.Duration) (bool, error) {
	log := logger.FromContext(ctx).With(zap.Int64("order_id", orderID))

	unlock := s.locks.Lock(orderID)
	defer unlock()

	var cancelled *order.Order
	uow := s.uowFactory.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		cancelled = nil
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsExpired(now, deadline) {
			log.Debug("order not eligible for timeout cancel",
				zap.String("status", string(o.Status())),
				zap.String("pay_status", string(o.PayStatus())))
			return nil
		}

		if err := o.CancelForTimeout(now); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		cancelled = o
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled == nil {
		return false, nil
	}

	log.Info("order cancelled for timeout", zap.String("order_number", cancelled.Number()))
	s.notifier.OrderCancel(cancelled.UserID(), orderCancelData(cancelled))
	return true, nil
}

// GetOrderDetail returns the order and its lines when userID owns it.
func (s *ApplicationService) GetOrderDetail(ctx context.Context, id, userID int64) (*OrderDetailResponse, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !(order.ByUserIDSpecification{UserID: userID}).IsSatisfiedBy(ctx, o) {
		return nil, order.NewOrderNotFoundError(o.Number())
	}
	items, err := s.items.GetByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderDetailResponse(o, items), nil
}

// PaymentTimeout is the age after which an unpaid order is cancelled.
func (s *ApplicationService) PaymentTimeout() time.Duration { return s.cfg.PaymentTimeout }
