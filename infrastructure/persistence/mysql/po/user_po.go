package po

import (
	"time"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/user"

	"github.com/shopspring/decimal"
)

type UserPO struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	OpenID    string    `gorm:"size:64;uniqueIndex;not null"`
	Name      string    `gorm:"size:64"`
	Phone     string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserPO) TableName() string {
	return "users"
}

func FromUserDomain(u *user.User) *UserPO {
	d := u.ToDTO()
	return &UserPO{ID: d.ID, OpenID: d.OpenID, Name: d.Name, Phone: d.Phone, CreatedAt: d.CreatedAt.UTC()}
}

func (p *UserPO) ToDomain() *user.User {
	return user.RebuildFromDTO(user.ReconstructionDTO{
		ID:        p.ID,
		OpenID:    p.OpenID,
		Name:      p.Name,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	})
}

type CartItemPO struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	UserID    int64           `gorm:"index;not null"`
	Name      string          `gorm:"size:128;not null"`
	Image     string          `gorm:"size:255"`
	DishID    int64           `gorm:"default:0"`
	SetmealID int64           `gorm:"default:0"`
	Flavor    string          `gorm:"size:64"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (CartItemPO) TableName() string {
	return "shopping_cart"
}

func FromCartItem(i cart.Item) *CartItemPO {
	return &CartItemPO{
		ID:        i.ID,
		UserID:    i.UserID,
		Name:      i.Name,
		Image:     i.Image,
		DishID:    i.DishID,
		SetmealID: i.SetmealID,
		Flavor:    i.Flavor,
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
	}
}

func (p CartItemPO) ToDomain() cart.Item {
	return cart.Item{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		Image:     p.Image,
		DishID:    p.DishID,
		SetmealID: p.SetmealID,
		Flavor:    p.Flavor,
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice,
	}
}

type AddressBookPO struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"index;not null"`
	Consignee string `gorm:"size:64;not null"`
	Phone     string `gorm:"size:32"`
	Province  string `gorm:"size:64"`
	City      string `gorm:"size:64"`
	District  string `gorm:"size:64"`
	Detail    string `gorm:"size:255;not null"`
}

func (AddressBookPO) TableName() string {
	return "address_book"
}

func FromAddress(a addressbook.Address) *AddressBookPO {
	return &AddressBookPO{
		ID:        a.ID,
		UserID:    a.UserID,
		Consignee: a.Consignee,
		Phone:     a.Phone,
		Province:  a.Province,
		City:      a.City,
		District:  a.District,
		Detail:    a.Detail,
	}
}

func (p *AddressBookPO) ToDomain() *addressbook.Address {
	return &addressbook.Address{
		ID:        p.ID,
		UserID:    p.UserID,
		Consignee: p.Consignee,
		Phone:     p.Phone,
		Province:  p.Province,
		City:      p.City,
		District:  p.District,
		Detail:    p.Detail,
	}
}

// All lists every persistence object for AutoMigrate.
func All() []any {
	return []any{&OrderPO{}, &OrderItemPO{}, &UserPO{}, &CartItemPO{}, &AddressBookPO{}}
}
