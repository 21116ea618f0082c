package cmd

import (
	"fmt"
	"net/http"

	"orderhub/api"
	"orderhub/api/health"
	apiorder "orderhub/api/order"
	apipayment "orderhub/api/payment"
	apiuser "orderhub/api/user"
	"orderhub/api/ws"
	orderapp "orderhub/application/order"
	userapp "orderhub/application/user"
	"orderhub/config"
	"orderhub/domain/shared"
	"orderhub/infrastructure/payment"
	"orderhub/infrastructure/persistence/retry"
	"orderhub/infrastructure/push"
	"orderhub/pkg/clock"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

// AppBuilder assembles an App. Storage and clock default to what the
// configuration names.
type AppBuilder struct {
	cfg     *config.Config
	clock   clock.Clock
	storage *Storage
}

func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg, clock: clock.Real{}}
}

// WithClock replaces the wall clock used by orders, pushes and the sweeper.
func (b *AppBuilder) WithClock(clk clock.Clock) *AppBuilder {
	b.clock = clk
	return b
}

// WithStorage skips opening the configured backend.
func (b *AppBuilder) WithStorage(s *Storage) *AppBuilder {
	b.storage = s
	return b
}

// core is everything both the server and the one-shot sweep need.
type core struct {
	bus        *shared.EventBus
	storage    *Storage
	registry   *push.Registry
	dispatcher *push.Dispatcher
	gateway    *payment.MockGateway
	orders     *orderapp.ApplicationService
}

func (b *AppBuilder) buildCore() (*core, error) {
	bus := shared.NewEventBus()
	if err := orderapp.RegisterAuditHandlers(bus); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	storage := b.storage
	if storage == nil {
		var err error
		if storage, err = OpenStorage(b.cfg, bus); err != nil {
			return nil, err
		}
	}

	registry := push.NewRegistry()
	dispatcher := push.NewDispatcher(registry, b.clock)
	gateway := payment.NewMockGateway(b.cfg.Payment, b.clock, payment.NewCallbackScheduler())

	orders := orderapp.NewApplicationService(orderapp.Dependencies{
		Orders:      storage.Orders,
		Items:       storage.Items,
		Carts:       storage.Carts,
		Addresses:   storage.Addresses,
		Users:       storage.Users,
		UoWFactory:  storage.UoWFactory,
		Gateway:     gateway,
		Notifier:    dispatcher,
		Clock:       b.clock,
		RetryConfig: retry.FromAppConfig(b.cfg),
	}, orderapp.Config{
		PaymentTimeout:     b.cfg.Order.PaymentTimeout,
		DeliveryLead:       b.cfg.Order.DeliveryLead,
		PaymentDescription: b.cfg.Payment.Description,
	})
	gateway.Bind(orders)

	return &core{
		bus:        bus,
		storage:    storage,
		registry:   registry,
		dispatcher: dispatcher,
		gateway:    gateway,
		orders:     orders,
	}, nil
}

func (c *core) sweeper(cfg *config.Config, clk clock.Clock) *orderapp.TimeoutSweeper {
	return orderapp.NewTimeoutSweeper(c.storage.Orders, c.orders, clk, cfg.Order.SweepInterval, cfg.Order.PaymentTimeout)
}

// Build wires the HTTP surface on top of the core.
func (b *AppBuilder) Build() (*App, error) {
	logger.Info("Starting application",
		zap.String("app", b.cfg.App.Name),
		zap.String("version", b.cfg.App.Version),
		zap.String("env", b.cfg.App.Env),
		zap.String("database", b.cfg.Database.Type),
		zap.String("payment_mode", b.cfg.Payment.Mode))

	c, err := b.buildCore()
	if err != nil {
		return nil, err
	}

	// The mock callback route only exists when payments are simulated.
	var mock apipayment.PayloadBuilder
	if b.cfg.IsMockPayment() {
		mock = c.gateway
	}

	router := api.NewRouter(b.cfg, api.Controllers{
		Health:         health.NewController(b.cfg, c.storage.Pinger, c.registry),
		User:           apiuser.NewController(userapp.NewApplicationService(c.storage.Users, c.storage.Addresses, c.storage.Carts)),
		Order:          apiorder.NewController(c.orders),
		Payment:        apipayment.NewController(c.orders, mock),
		CustomerSocket: ws.NewHandler(push.NewEndpoint(push.AudienceCustomer, c.registry, c.dispatcher), b.cfg.WebSocket),
		MerchantSocket: ws.NewHandler(push.NewEndpoint(push.AudienceMerchant, c.registry, c.dispatcher), b.cfg.WebSocket),
	})
	router.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + b.cfg.Server.Port,
		Handler:      router.Handler(),
		ReadTimeout:  b.cfg.Server.ReadTimeout,
		WriteTimeout: b.cfg.Server.WriteTimeout,
	}

	app := &App{
		config: b.cfg,
		core:   c,
		router: router,
		server: server,
	}
	if b.cfg.Order.SweepEnabled {
		app.sweeper = c.sweeper(b.cfg, b.clock)
	}
	return app, nil
}
