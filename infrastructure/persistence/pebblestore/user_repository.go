package pebblestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/user"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"
)

type userRecord struct {
	ID        int64     `json:"id"`
	OpenID    string    `json:"open_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func userKey(id int64) []byte { return []byte("u:" + padded(id)) }

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	return r.store.update(ctx, func(b *pebble.Batch) error {
		if u.ID() == 0 {
			id, err := nextID(b, "users")
			if err != nil {
				return err
			}
			u.AssignID(id)
		}
		d := u.ToDTO()
		return setJSON(b, userKey(d.ID), userRecord{
			ID: d.ID, OpenID: d.OpenID, Name: d.Name, Phone: d.Phone, CreatedAt: d.CreatedAt.UTC(),
		})
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var rec userRecord
	found, err := getJSON(r.store.reader(ctx), userKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, user.NewUserNotFoundError(id)
	}
	return user.RebuildFromDTO(user.ReconstructionDTO{
		ID: rec.ID, OpenID: rec.OpenID, Name: rec.Name, Phone: rec.Phone, CreatedAt: rec.CreatedAt,
	}), nil
}

type cartRecord struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	DishID    int64           `json:"dish_id,omitempty"`
	SetmealID int64           `json:"setmeal_id,omitempty"`
	Flavor    string          `json:"flavor,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func cartPrefix(userID int64) []byte { return []byte("c:" + padded(userID) + ":") }

type CartRepository struct {
	store *Store
}

func NewCartRepository(store *Store) *CartRepository {
	return &CartRepository{store: store}
}

func (r *CartRepository) ListByUserID(ctx context.Context, userID int64) ([]cart.Item, error) {
	prefix := cartPrefix(userID)
	var lines []cart.Item
	err := scanJSON(r.store.reader(ctx), prefix, keyUpperBound(prefix), func(value []byte) error {
		var rec cartRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal cart line: %w", err)
		}
		lines = append(lines, cart.Item(rec))
		return nil
	})
	return lines, err
}

func (r *CartRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	prefix := cartPrefix(userID)
	return r.store.update(ctx, func(b *pebble.Batch) error {
		return b.DeleteRange(prefix, keyUpperBound(prefix), nil)
	})
}

func (r *CartRepository) Add(ctx context.Context, item cart.Item) (cart.Item, error) {
	if err := item.Validate(); err != nil {
		return cart.Item{}, err
	}
	err := r.store.update(ctx, func(b *pebble.Batch) error {
		id, err := nextID(b, "shopping_cart")
		if err != nil {
			return err
		}
		item.ID = id
		return setJSON(b, append(cartPrefix(item.UserID), padded(id)...), cartRecord(item))
	})
	if err != nil {
		return cart.Item{}, err
	}
	return item, nil
}

type addressRecord struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Consignee string `json:"consignee"`
	Phone     string `json:"phone"`
	Province  string `json:"province,omitempty"`
	City      string `json:"city,omitempty"`
	District  string `json:"district,omitempty"`
	Detail    string `json:"detail"`
}

func addressKey(id int64) []byte { return []byte("a:" + padded(id)) }

type AddressBookRepository struct {
	store *Store
}

func NewAddressBookRepository(store *Store) *AddressBookRepository {
	return &AddressBookRepository{store: store}
}

func (r *AddressBookRepository) GetByID(ctx context.Context, id int64) (*addressbook.Address, error) {
	var rec addressRecord
	found, err := getJSON(r.store.reader(ctx), addressKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, addressbook.NewAddressNotFoundError(id)
	}
	a := addressbook.Address(rec)
	return &a, nil
}

func (r *AddressBookRepository) Save(ctx context.Context, a addressbook.Address) (*addressbook.Address, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	err := r.store.update(ctx, func(b *pebble.Batch) error {
		if a.ID == 0 {
			id, err := nextID(b, "address_book")
			if err != nil {
				return err
			}
			a.ID = id
		}
		return setJSON(b, addressKey(a.ID), addressRecord(a))
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var (
	_ user.Repository        = (*UserRepository)(nil)
	_ cart.Repository        = (*CartRepository)(nil)
	_ addressbook.Repository = (*AddressBookRepository)(nil)
)
