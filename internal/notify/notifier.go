package notify

import (
	"errors"
	"log/slog"

	"github.com/jmoreau/tether/internal/push"
	"github.com/jmoreau/tether/internal/store"
	"github.com/jmoreau/tether/internal/websocket"
)

// Notifier fans one event out to the three delivery channels: a persistent
// notification row, a WebSocket sync message, and web push to the user's
// registered devices.
type Notifier struct {
	notifications *store.NotificationStore
	subscriptions *store.PushStore
	service       *push.Service
	hub           *websocket.Hub
	logger        *slog.Logger
}

// New creates a Notifier. service may be nil when VAPID keys are not
// configured; web push is then skipped.
func New(notifications *store.NotificationStore, subscriptions *store.PushStore, service *push.Service, hub *websocket.Hub, logger *slog.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		subscriptions: subscriptions,
		service:       service,
		hub:           hub,
		logger:        logger.With("component", "notify"),
	}
}

// Notify records a notification for the user and pushes it out. The row is
// the source of truth; WebSocket and web push deliveries are best-effort.
func (n *Notifier) Notify(userID int64, title, message, notifType, url string) {
	row, err := n.notifications.Create(userID, title, message, notifType)
	if err != nil {
		n.logger.Error("create notification", "user_id", userID, "error", err)
		return
	}

	n.hub.SendToUsers(
		websocket.NewMessage("notification", "created", row.ID, map[string]any{
			"title": title,
			"type":  notifType,
		}),
		userID,
	)

	if n.service == nil {
		return
	}
	go n.sendPush(userID, push.Payload{Title: title, Body: message, URL: url, Tag: notifType})
}

func (n *Notifier) sendPush(userID int64, payload push.Payload) {
	subs, err := n.subscriptions.ListByUser(userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		err := n.service.Send(sub, payload)
		if errors.Is(err, push.ErrExpired) {
			if err := n.subscriptions.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("remove expired subscription", "error", err)
			}
			continue
		}
		if err != nil {
			n.logger.Warn("send push", "user_id", userID, "error", err)
		}
	}
}
