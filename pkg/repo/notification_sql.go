package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationSQLRepo struct {
	db *gorm.DB
}

func NewNotificationSQLRepo(db *gorm.DB) *NotificationSQLRepo {
	return &NotificationSQLRepo{
		db: db,
	}
}

func (r *NotificationSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// ignoreDuplicates skips rows whose (event_id, order_id) is already stored.
func ignoreDuplicates(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "order_id"}},
		DoNothing: true,
	})
}

func (r *NotificationSQLRepo) BulkCreate(ctx context.Context, records []*NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return ignoreDuplicates(r.dbWithContext(ctx)).CreateInBatches(records, 500).Error
}
