/*
Package order exposes the customer order endpoints.

Binding failures answer 400 through response.HandleError; service errors go
through response.HandleAppError, which maps domain sentinels to status codes.
*/
package order

import (
	"net/http"
	"strconv"

	"orderhub/api/ctxutil"
	"orderhub/api/response"
	orderapp "orderhub/application/order"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	orderService *orderapp.ApplicationService
}

func NewController(orderService *orderapp.ApplicationService) *Controller {
	return &Controller{orderService: orderService}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	orderGroup := router.Group("/user/orders")
	{
		orderGroup.POST("/submit", c.Submit)
		orderGroup.PUT("/payment", c.Payment)
		orderGroup.GET("/:id", c.Detail)
	}
}

// Submit turns the caller's cart into an order.
// POST /api/v1/user/orders/submit
func (c *Controller) Submit(ctx *gin.Context) {
	userID, ok := ctxutil.UserID(ctx)
	if !ok {
		response.HandleError(ctx, nil, "missing or invalid "+ctxutil.UserIDHeader+" header", http.StatusBadRequest)
		return
	}

	var req orderapp.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = userID

	resp, err := c.orderService.Submit(ctxutil.WithRequestID(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, resp, "order submitted")
}

// Payment requests a payment intent for an unpaid order.
// PUT /api/v1/user/orders/payment
func (c *Controller) Payment(ctx *gin.Context) {
	userID, ok := ctxutil.UserID(ctx)
	if !ok {
		response.HandleError(ctx, nil, "missing or invalid "+ctxutil.UserIDHeader+" header", http.StatusBadRequest)
		return
	}

	var req orderapp.PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = userID

	resp, err := c.orderService.RequestPayment(ctxutil.WithRequestID(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "payment requested")
}

// Detail returns one order of the caller with its lines.
// GET /api/v1/user/orders/:id
func (c *Controller) Detail(ctx *gin.Context) {
	userID, ok := ctxutil.UserID(ctx)
	if !ok {
		response.HandleError(ctx, nil, "missing or invalid "+ctxutil.UserIDHeader+" header", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(ctx, err, "order id must be an integer", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.GetOrderDetail(ctxutil.WithRequestID(ctx), id, userID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "order retrieved")
}
