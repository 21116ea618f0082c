package order

import (
	"orderhub/domain/cart"
	"orderhub/domain/order"
	"orderhub/infrastructure/payment"
)

func toLines(items []cart.Item) []order.Line {
	lines := make([]order.Line, len(items))
	for i, item := range items {
		lines[i] = order.Line{
			Name:      item.Name,
			Image:     item.Image,
			DishID:    item.DishID,
			SetmealID: item.SetmealID,
			Flavor:    item.Flavor,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return lines
}

func toSubmitResponse(o *order.Order) *SubmitResponse {
	return &SubmitResponse{
		ID:          o.ID(),
		OrderNumber: o.Number(),
		OrderAmount: o.Amount(),
		OrderTime:   o.OrderTime(),
	}
}

func toPaymentResponse(intent *payment.Intent) *PaymentResponse {
	return &PaymentResponse{
		TimeStamp: intent.TimeStamp,
		NonceStr:  intent.NonceStr,
		Package:   intent.Package,
		SignType:  intent.SignType,
		PaySign:   intent.PaySign,
		PrepayID:  intent.PrepayID,
	}
}

func toOrderDetailResponse(o *order.Order, items []order.Item) *OrderDetailResponse {
	resp := &OrderDetailResponse{
		ID:                    o.ID(),
		Number:                o.Number(),
		Status:                string(o.Status()),
		PayStatus:             string(o.PayStatus()),
		Amount:                o.Amount(),
		Consignee:             o.Consignee(),
		Phone:                 o.Phone(),
		Address:               o.Address(),
		Remark:                o.Remark(),
		OrderTime:             o.OrderTime(),
		EstimatedDeliveryTime: o.EstimatedDeliveryTime(),
		CheckoutTime:          o.CheckoutTime(),
		CancelReason:          o.CancelReason(),
		CancelTime:            o.CancelTime(),
		Items:                 make([]OrderItemResponse, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = OrderItemResponse{
			ID:        item.ID(),
			Name:      item.Name(),
			Image:     item.Image(),
			DishID:    item.DishID(),
			SetmealID: item.SetmealID(),
			Flavor:    item.Flavor(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice(),
			Subtotal:  item.Subtotal(),
		}
	}
	return resp
}

func paymentSuccessData(o *order.Order) PaymentSuccessData {
	data := PaymentSuccessData{OrderID: o.ID(), OrderNumber: o.Number(), Amount: o.Amount()}
	if t := o.CheckoutTime(); t != nil {
		data.PayTime = *t
	}
	return data
}

func newOrderData(o *order.Order) NewOrderData {
	return NewOrderData{
		OrderID:     o.ID(),
		OrderNumber: o.Number(),
		Amount:      o.Amount(),
		Consignee:   o.Consignee(),
		Phone:       o.Phone(),
		Address:     o.Address(),
		OrderTime:   o.OrderTime(),
	}
}

func orderCancelData(o *order.Order) OrderCancelData {
	return OrderCancelData{OrderID: o.ID(), OrderNumber: o.Number(), CancelReason: o.CancelReason()}
}
