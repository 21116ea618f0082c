// Package payment simulates the payment provider. The mock gateway issues
// payment intents and, in mock mode, later reports success through the same
// Completer a real provider webhook reaches. With callbacks disabled,
// completion only arrives through the webhook.
package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"orderhub/config"
	"orderhub/pkg/clock"
	"orderhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CodeOrderPaid is set on an intent for an order the gateway already settled.
const CodeOrderPaid = "ORDERPAID"

const TradeStateSuccess = "SUCCESS"

type PayRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Description string
	PayerID     string
}

// Intent carries the parameters a client needs to confirm the payment.
type Intent struct {
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
	PrepayID  string `json:"prepay_id"`
	Code      string `json:"code,omitempty"`
}

// CallbackPayload is the body a provider posts to the notify webhook.
type CallbackPayload struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	SuccessTime   int64  `json:"success_time"`
}

// Completer is the payment completion entry point shared with the webhook.
type Completer interface {
	CompletePayment(ctx context.Context, orderNumber string) error
}

type MockGateway struct {
	mode      string
	delay     time.Duration
	clock     clock.Clock
	scheduler *CallbackScheduler
	log       *zap.Logger

	mu        sync.RWMutex
	completer Completer
	settled   map[string]bool
}

func NewMockGateway(cfg config.PaymentConfig, clk clock.Clock, scheduler *CallbackScheduler) *MockGateway {
	if clk == nil {
		clk = clock.Real{}
	}
	if scheduler == nil {
		scheduler = NewCallbackScheduler()
	}
	return &MockGateway{
		mode:      cfg.Mode,
		delay:     cfg.CallbackDelay,
		clock:     clk,
		scheduler: scheduler,
		log:       logger.Named("payment"),
		settled:   make(map[string]bool),
	}
}

// Bind sets the completer scheduled callbacks invoke. The application service
// is built after the gateway, so it is bound late.
func (g *MockGateway) Bind(c Completer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completer = c
}

func (g *MockGateway) Pay(ctx context.Context, req PayRequest) (*Intent, error) {
	log := logger.FromContext(ctx).With(zap.String("order_number", req.OrderNumber))

	g.mu.RLock()
	settled := g.settled[req.OrderNumber]
	g.mu.RUnlock()
	if settled {
		log.Info("payment already settled")
		return &Intent{Code: CodeOrderPaid}, nil
	}

	now := g.clock.Now()
	prepayID := "wx" + strconv.FormatInt(now.UnixMilli(), 10) + randomDigits(10)
	intent := &Intent{
		TimeStamp: strconv.FormatInt(now.Unix(), 10),
		NonceStr:  strings.ReplaceAll(uuid.NewString(), "-", ""),
		Package:   "prepay_id=" + prepayID,
		SignType:  "RSA",
		PrepayID:  prepayID,
	}
	intent.PaySign = base64.StdEncoding.EncodeToString([]byte(intent.TimeStamp + intent.NonceStr + intent.Package))

	log.Info("payment intent issued",
		zap.String("prepay_id", prepayID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("payer", req.PayerID))

	if g.mode == "mock" {
		g.scheduleCallback(req.OrderNumber)
	}
	return intent, nil
}

func (g *MockGateway) scheduleCallback(number string) {
	scheduled := g.scheduler.Schedule(number, g.delay, func(ctx context.Context) {
		g.mu.RLock()
		c := g.completer
		g.mu.RUnlock()
		if c == nil {
			g.log.Warn("no completer bound, simulated callback dropped", zap.String("order_number", number))
			return
		}

		payload := g.CallbackPayload(number)
		if err := c.CompletePayment(ctx, number); err != nil {
			g.log.Error("simulated payment callback failed",
				zap.String("order_number", number), zap.Error(err))
			return
		}
		g.markSettled(number)
		g.log.Info("simulated payment callback delivered",
			zap.String("order_number", number),
			zap.String("transaction_id", payload.TransactionID))
	})
	if !scheduled {
		g.log.Debug("simulated callback already pending", zap.String("order_number", number))
	}
}

func (g *MockGateway) markSettled(number string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settled[number] = true
}

// CallbackPayload builds the success body a provider would post for number.
func (g *MockGateway) CallbackPayload(number string) CallbackPayload {
	now := g.clock.Now()
	return CallbackPayload{
		OutTradeNo:    number,
		TransactionID: fmt.Sprintf("4200%d", now.UnixMilli()),
		TradeState:    TradeStateSuccess,
		SuccessTime:   now.UnixMilli(),
	}
}

// Shutdown stops every pending simulated callback.
func (g *MockGateway) Shutdown() {
	g.scheduler.Shutdown()
}

func randomDigits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
