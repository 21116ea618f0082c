package memory

import (
	"context"
	"sync"

	"orderhub/domain/addressbook"
	"orderhub/domain/cart"
	"orderhub/domain/user"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]user.ReconstructionDTO
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]user.ReconstructionDTO)}
}

func (r *UserRepository) Save(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID() == 0 {
		r.nextID++
		u.AssignID(r.nextID)
	} else if u.ID() > r.nextID {
		r.nextID = u.ID()
	}
	r.users[u.ID()] = u.ToDTO()
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dto, ok := r.users[id]
	if !ok {
		return nil, user.NewUserNotFoundError(id)
	}
	return user.RebuildFromDTO(dto), nil
}

type CartRepository struct {
	mu     sync.RWMutex
	nextID int64
	lines  map[int64][]cart.Item
}

func NewCartRepository() *CartRepository {
	return &CartRepository{lines: make(map[int64][]cart.Item)}
}

func (r *CartRepository) ListByUserID(_ context.Context, userID int64) ([]cart.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]cart.Item, len(r.lines[userID]))
	copy(lines, r.lines[userID])
	return lines, nil
}

func (r *CartRepository) DeleteByUserID(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lines, userID)
	return nil
}

func (r *CartRepository) Add(_ context.Context, item cart.Item) (cart.Item, error) {
	if err := item.Validate(); err != nil {
		return cart.Item{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item.ID = r.nextID
	r.lines[item.UserID] = append(r.lines[item.UserID], item)
	return item, nil
}

type AddressBookRepository struct {
	mu        sync.RWMutex
	nextID    int64
	addresses map[int64]addressbook.Address
}

func NewAddressBookRepository() *AddressBookRepository {
	return &AddressBookRepository{addresses: make(map[int64]addressbook.Address)}
}

func (r *AddressBookRepository) GetByID(_ context.Context, id int64) (*addressbook.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[id]
	if !ok {
		return nil, addressbook.NewAddressNotFoundError(id)
	}
	return &a, nil
}

func (r *AddressBookRepository) Save(_ context.Context, a addressbook.Address) (*addressbook.Address, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == 0 {
		r.nextID++
		a.ID = r.nextID
	} else if a.ID > r.nextID {
		r.nextID = a.ID
	}
	r.addresses[a.ID] = a
	return &a, nil
}

var (
	_ user.Repository        = (*UserRepository)(nil)
	_ cart.Repository        = (*CartRepository)(nil)
	_ addressbook.Repository = (*AddressBookRepository)(nil)
)
