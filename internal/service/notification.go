package service

import (
	"context"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// NotificationService exposes the actor's inbox.  Administrators also see
// broadcasts; their read flag is shared between administrators.
type NotificationService struct {
	stores Stores
}

func NewNotificationService(stores Stores) *NotificationService {
	return &NotificationService{stores: stores}
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, actor model.Actor, skip, limit int) ([]*model.Notification, error) {
	return s.stores.Notifications.List(ctx, actor, skip, limit)
}

// MarkRead marks one notification read; unseen ids are NotFound.
func (s *NotificationService) MarkRead(ctx context.Context, actor model.Actor, id uint64) error {
	return s.stores.Notifications.MarkRead(ctx, actor, id)
}

// MarkAllRead marks every visible notification read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	return s.stores.Notifications.MarkAllRead(ctx, actor)
}

// UnreadCount counts unread visible notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, actor model.Actor) (int, error) {
	return s.stores.Notifications.UnreadCount(ctx, actor)
}
