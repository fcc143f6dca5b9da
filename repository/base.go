package repository

import (
	"context"

	"gorm.io/gorm"
)

// BaseRepository provides common CRUD operations for all repositories.
type BaseRepository[T any, F any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any, F any](db *gorm.DB) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{db: db}
}

// getDB returns the transaction from context if present, otherwise the base connection.
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// getDBForWrite returns the transaction from context if present, otherwise
// starts a new transaction. The boolean reports whether the caller owns the
// returned transaction and must commit or roll it back.
func (r *BaseRepository[T, F]) getDBForWrite(ctx context.Context) (*gorm.DB, bool) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx), false
	}
	return r.db.WithContext(ctx).Begin(), true
}

func (r *BaseRepository[T, F]) ByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.getDB(ctx).First(&entity, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
	db, isOwner := r.getDBForWrite(ctx)
	var err error
	if isOwner {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Create(entity).Error
	return err
}

func (r *BaseRepository[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	db, isOwner := r.getDBForWrite(ctx)
	var err error
	if isOwner {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.CreateInBatches(entities, 100).Error
	return err
}

func (r *BaseRepository[T, F]) Update(ctx context.Context, entity *T) error {
	db, isOwner := r.getDBForWrite(ctx)
	var err error
	if isOwner {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(entity).Error
	return err
}

// WithTransaction runs fn inside a transaction and stores it in the context
// so nested repository calls join the same transaction. A nil db runs fn
// without transactional guarantees.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if db == nil {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, TxContextKey, tx)
		return fn(txCtx)
	})
}
