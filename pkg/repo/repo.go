// Package repo stores the trade notifications archived by the worker.
package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Notification() INotification
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) IRepo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Notification() INotification {
	return NewNotificationSQLRepo(r.db)
}
