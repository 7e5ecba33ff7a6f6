package persistence

import (
	"context"

	"github.com/joripage/crossbook/pkg/orderbook"
	"gorm.io/gorm"
)

const sqlBatchSize = 500

// SQLStore keeps the active orders in the active_orders table. A persist
// replaces the table contents in one transaction.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{
		db: db,
	}
}

func (s *SQLStore) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *SQLStore) LoadActiveOrders(ctx context.Context) ([]orderbook.Order, error) {
	var records []Record
	if err := s.dbWithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return ToOrders(records)
}

func (s *SQLStore) PersistActiveOrders(ctx context.Context, orders []orderbook.Order) error {
	records := FromOrders(orders)
	return s.dbWithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Record{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, sqlBatchSize).Error
	})
}
