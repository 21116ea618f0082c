package mysql

import (
	"context"
	"errors"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/shared"
	"orderhub/domain/user"
	"orderhub/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	row := po.FromUserDomain(u)
	db := getDB(ctx, r.db)
	if row.ID == 0 {
		if err := db.Create(row).Error; err != nil {
			if isDuplicateKeyError(err) {
				return shared.NewConflictError("user", "open id already registered")
			}
			return err
		}
		u.AssignID(row.ID)
		return nil
	}
	return db.Save(row).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var row po.UserPO
	if err := getDB(ctx, r.db).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.NewUserNotFoundError(id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) ListByUserID(ctx context.Context, userID int64) ([]cart.Item, error) {
	var rows []po.CartItemPO
	if err := getDB(ctx, r.db).Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]cart.Item, len(rows))
	for i, row := range rows {
		items[i] = row.ToDomain()
	}
	return items, nil
}

func (r *CartRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	return getDB(ctx, r.db).Where("user_id = ?", userID).Delete(&po.CartItemPO{}).Error
}

func (r *CartRepository) Add(ctx context.Context, item cart.Item) (cart.Item, error) {
	if err := item.Validate(); err != nil {
		return cart.Item{}, err
	}
	row := po.FromCartItem(item)
	row.ID = 0
	if err := getDB(ctx, r.db).Create(row).Error; err != nil {
		return cart.Item{}, err
	}
	return row.ToDomain(), nil
}

type AddressBookRepository struct {
	db *gorm.DB
}

func NewAddressBookRepository(db *gorm.DB) *AddressBookRepository {
	return &AddressBookRepository{db: db}
}

func (r *AddressBookRepository) GetByID(ctx context.Context, id int64) (*addressbook.Address, error) {
	var row po.AddressBookPO
	if err := getDB(ctx, r.db).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, addressbook.NewAddressNotFoundError(id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *AddressBookRepository) Save(ctx context.Context, a addressbook.Address) (*addressbook.Address, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	row := po.FromAddress(a)
	db := getDB(ctx, r.db)
	var err error
	if row.ID == 0 {
		err = db.Create(row).Error
	} else {
		err = db.Save(row).Error
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

var (
	_ user.Repository        = (*UserRepository)(nil)
	_ cart.Repository        = (*CartRepository)(nil)
	_ addressbook.Repository = (*AddressBookRepository)(nil)
)
