package mysql

import (
	"orderhub/domain/shared"
	"orderhub/infrastructure/persistence/retry"

	"gorm.io/gorm"
)

type UnitOfWorkFactory struct {
	db          *gorm.DB
	publisher   shared.EventPublisher
	retryConfig retry.Config
}

func NewUnitOfWorkFactory(db *gorm.DB, publisher shared.EventPublisher, retryConfig retry.Config) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db, publisher: publisher, retryConfig: retryConfig}
}

func (f *UnitOfWorkFactory) New() shared.UnitOfWork {
	return NewUnitOfWork(f.db, f.publisher, f.retryConfig)
}

var _ shared.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
