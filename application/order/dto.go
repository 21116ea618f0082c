package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmitRequest turns the caller's cart into an order. UserID comes from the
// request context, never from the body.
type SubmitRequest struct {
	UserID                int64            `json:"-"`
	AddressBookID         int64            `json:"addressBookId" binding:"required"`
	Remark                string           `json:"remark"`
	EstimatedDeliveryTime *time.Time       `json:"estimatedDeliveryTime"`
	Amount                *decimal.Decimal `json:"amount"`
}

type SubmitResponse struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
	OrderTime   time.Time       `json:"orderTime"`
}

type PaymentRequest struct {
	UserID      int64  `json:"-"`
	OrderNumber string `json:"orderNumber" binding:"required"`
	PayMethod   int    `json:"payMethod"`
}

type PaymentResponse struct {
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"packageStr"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
	PrepayID  string `json:"prepayId"`
}

type OrderDetailResponse struct {
	ID                    int64               `json:"id"`
	Number                string              `json:"number"`
	Status                string              `json:"status"`
	PayStatus             string              `json:"payStatus"`
	Amount                decimal.Decimal     `json:"amount"`
	Consignee             string              `json:"consignee"`
	Phone                 string              `json:"phone"`
	Address               string              `json:"address"`
	Remark                string              `json:"remark,omitempty"`
	OrderTime             time.Time           `json:"orderTime"`
	EstimatedDeliveryTime time.Time           `json:"estimatedDeliveryTime"`
	CheckoutTime          *time.Time          `json:"checkoutTime,omitempty"`
	CancelReason          string              `json:"cancelReason,omitempty"`
	CancelTime            *time.Time          `json:"cancelTime,omitempty"`
	Items                 []OrderItemResponse `json:"orderDetailList"`
}

type OrderItemResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	DishID    int64           `json:"dishId,omitempty"`
	SetmealID int64           `json:"setmealId,omitempty"`
	Flavor    string          `json:"dishFlavor,omitempty"`
	Quantity  int             `json:"number"`
	UnitPrice decimal.Decimal `json:"amount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Push payloads

type PaymentSuccessData struct {
	OrderID     int64           `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Amount      decimal.Decimal `json:"amount"`
	PayTime     time.Time       `json:"payTime"`
}

type NewOrderData struct {
	OrderID     int64           `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Amount      decimal.Decimal `json:"amount"`
	Consignee   string          `json:"consignee"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	OrderTime   time.Time       `json:"orderTime"`
}

type OrderCancelData struct {
	OrderID      int64  `json:"orderId"`
	OrderNumber  string `json:"orderNumber"`
	CancelReason string `json:"cancelReason"`
}
