// Package payment receives payment provider callbacks.
package payment

import (
	"net/http"

	"orderhub/api/ctxutil"
	"orderhub/api/response"
	"orderhub/infrastructure/payment"
	"orderhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PayloadBuilder builds the callback body a provider would send; only the
// simulated gateway implements it.
type PayloadBuilder interface {
	CallbackPayload(orderNumber string) payment.CallbackPayload
}

type Controller struct {
	completer payment.Completer
	mock      PayloadBuilder
}

// NewController wires the webhook to completer. mock may be nil; when set,
// a trigger endpoint for simulated callbacks is registered too.
func NewController(completer payment.Completer, mock PayloadBuilder) *Controller {
	return &Controller{completer: completer, mock: mock}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/payments")
	group.POST("/notify", c.Notify)
	if c.mock != nil {
		group.POST("/mock/:orderNumber", c.MockCallback)
	}
}

// Notify handles POST /api/v1/payments/notify. Any body that parses is
// acknowledged with SUCCESS so the provider stops retrying; only storage
// failures answer 500 and get redelivered.
func (c *Controller) Notify(ctx *gin.Context) {
	var payload payment.CallbackPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil || payload.OutTradeNo == "" {
		response.HandleError(ctx, err, "invalid payment notification", http.StatusBadRequest)
		return
	}
	c.handle(ctx, payload)
}

// MockCallback handles POST /api/v1/payments/mock/:orderNumber by feeding a
// generated success payload through the webhook path.
func (c *Controller) MockCallback(ctx *gin.Context) {
	c.handle(ctx, c.mock.CallbackPayload(ctx.Param("orderNumber")))
}

func (c *Controller) handle(ctx *gin.Context, payload payment.CallbackPayload) {
	reqCtx := ctxutil.WithRequestID(ctx)
	log := logger.FromContext(reqCtx).With(
		zap.String("order_number", payload.OutTradeNo),
		zap.String("transaction_id", payload.TransactionID),
		zap.String("trade_state", payload.TradeState))

	if payload.TradeState != payment.TradeStateSuccess {
		log.Info("non-success payment notification acknowledged")
		ctx.JSON(http.StatusOK, gin.H{"code": "SUCCESS", "message": "ignored"})
		return
	}

	if err := c.completer.CompletePayment(reqCtx, payload.OutTradeNo); err != nil {
		log.Error("payment notification failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": "FAIL", "message": "internal server error"})
		return
	}
	log.Info("payment notification processed")
	ctx.JSON(http.StatusOK, gin.H{"code": "SUCCESS", "message": "OK"})
}
