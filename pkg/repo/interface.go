package repo

import (
	"context"
)

type INotification interface {
	BulkCreate(ctx context.Context, records []*NotificationRecord) error
}
