package user

import (
	"net/http"
	"strconv"

	"orderhub/api/ctxutil"
	"orderhub/api/response"
	userapp "orderhub/application/user"

	"github.com/gin-gonic/gin"
)

// Controller serves the account, address book and cart endpoints an order
// submission depends on.
type Controller struct {
	userService *userapp.ApplicationService
}

func NewController(userService *userapp.ApplicationService) *Controller {
	return &Controller{userService: userService}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/users", c.Register)
	router.GET("/users/:id", c.GetUser)

	userGroup := router.Group("/user")
	{
		userGroup.POST("/addressBook", c.AddAddress)
		userGroup.POST("/shoppingCart/add", c.AddCartItem)
		userGroup.GET("/shoppingCart/list", c.ListCart)
	}
}

func (c *Controller) Register(ctx *gin.Context) {
	var req userapp.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	u, err := c.userService.Register(ctxutil.WithRequestID(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, u, "user registered")
}

func (c *Controller) GetUser(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(ctx, err, "user id must be an integer", http.StatusBadRequest)
		return
	}

	u, err := c.userService.GetUser(ctxutil.WithRequestID(ctx), id)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, u, "user retrieved")
}

func (c *Controller) AddAddress(ctx *gin.Context) {
	userID, ok := ctxutil.UserID(ctx)
	if !ok {
		response.HandleError(ctx, nil, "missing or invalid "+ctxutil.UserIDHeader+" header", http.StatusBadRequest)
		return
	}
	var req userapp.AddressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = userID

	addr, err := c.userService.AddAddress(ctxutil.WithRequestID(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, addr, "address saved")
}

func (c *Controller) AddCartItem(ctx *gin.Context) {
	userID, ok := ctxutil.UserID(ctx)
	if !ok {
		response.HandleError(ctx, nil, "missing or invalid "+ctxutil.UserIDHeader+" header", http.StatusBadRequest)
		return
	}
	var req userapp.CartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = userID

	item, err := c.userService.AddCartItem(ctxutil.WithRequestID(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, item, "cart item added")
}

func (c *Controller) ListCart(ctx *gin.Context) {
	userID, ok := ctxutil.UserID(ctx)
	if !ok {
		response.HandleError(ctx, nil, "missing or invalid "+ctxutil.UserIDHeader+" header", http.StatusBadRequest)
		return
	}

	items, err := c.userService.ListCart(ctxutil.WithRequestID(ctx), userID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, items, "cart retrieved")
}
