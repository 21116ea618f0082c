// Package user manages the customer side data an order is built from:
// the account, its delivery addresses and its shopping cart.
package user

import (
	"context"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/user"
	"orderhub/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ApplicationService struct {
	users     user.Repository
	addresses addressbook.Repository
	carts     cart.Repository
}

func NewApplicationService(users user.Repository, addresses addressbook.Repository, carts cart.Repository) *ApplicationService {
	return &ApplicationService{users: users, addresses: addresses, carts: carts}
}

type RegisterRequest struct {
	OpenID string `json:"openid" binding:"required"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

type UserResponse struct {
	ID     int64  `json:"id"`
	OpenID string `json:"openid"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

type AddressRequest struct {
	UserID    int64  `json:"-"`
	Consignee string `json:"consignee" binding:"required"`
	Phone     string `json:"phone"`
	Province  string `json:"provinceName"`
	City      string `json:"cityName"`
	District  string `json:"districtName"`
	Detail    string `json:"detail" binding:"required"`
}

type AddressResponse struct {
	ID        int64  `json:"id"`
	Consignee string `json:"consignee"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type CartItemRequest struct {
	UserID    int64           `json:"-"`
	Name      string          `json:"name" binding:"required"`
	Image     string          `json:"image"`
	DishID    int64           `json:"dishId"`
	SetmealID int64           `json:"setmealId"`
	Flavor    string          `json:"dishFlavor"`
	Quantity  int             `json:"number"`
	UnitPrice decimal.Decimal `json:"amount"`
}

type CartItemResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"number"`
	UnitPrice decimal.Decimal `json:"amount"`
}

func (s *ApplicationService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	u, err := user.NewUser(0, req.OpenID, req.Name, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("user registered", zap.Int64("user_id", u.ID()))
	return toUserResponse(u), nil
}

func (s *ApplicationService) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

func (s *ApplicationService) AddAddress(ctx context.Context, req AddressRequest) (*AddressResponse, error) {
	saved, err := s.addresses.Save(ctx, addressbook.Address{
		UserID:    req.UserID,
		Consignee: req.Consignee,
		Phone:     req.Phone,
		Province:  req.Province,
		City:      req.City,
		District:  req.District,
		Detail:    req.Detail,
	})
	if err != nil {
		return nil, err
	}
	return &AddressResponse{ID: saved.ID, Consignee: saved.Consignee, Phone: saved.Phone, Address: saved.Full()}, nil
}

// AddCartItem appends one line to the user's cart. Lines are not merged.
func (s *ApplicationService) AddCartItem(ctx context.Context, req CartItemRequest) (*CartItemResponse, error) {
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	item, err := s.carts.Add(ctx, cart.Item{
		UserID:    req.UserID,
		Name:      req.Name,
		Image:     req.Image,
		DishID:    req.DishID,
		SetmealID: req.SetmealID,
		Flavor:    req.Flavor,
		Quantity:  qty,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		return nil, err
	}
	return &CartItemResponse{ID: item.ID, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice}, nil
}

func (s *ApplicationService) ListCart(ctx context.Context, userID int64) ([]CartItemResponse, error) {
	items, err := s.carts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]CartItemResponse, len(items))
	for i, item := range items {
		out[i] = CartItemResponse{ID: item.ID, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	return out, nil
}

func toUserResponse(u *user.User) *UserResponse {
	return &UserResponse{ID: u.ID(), OpenID: u.OpenID(), Name: u.Name(), Phone: u.Phone()}
}
