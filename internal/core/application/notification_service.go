package application

import (
	"context"
	"fmt"

	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

// Notification service has the very simple task of registering the push
// notification token of the device to the backend and of waking up the
// synchronization when a notification is received. It also makes the sync
// event channel accessible to external clients.
type NotificationService struct {
	backend ports.BackendClient
	syncSvc *SyncService
}

func NewNotificationService(
	backend ports.BackendClient, syncSvc *SyncService,
) *NotificationService {
	return &NotificationService{backend, syncSvc}
}

// RegisterDeviceToken registers the given token and returns the backend ack.
func (ns *NotificationService) RegisterDeviceToken(
	ctx context.Context, token string, isDebug bool,
) (string, error) {
	if len(token) <= 0 {
		return "", fmt.Errorf("missing device token")
	}
	return ns.backend.RegisterNotificationToken(ctx, domain.DeviceToken{
		Token:   token,
		IsDebug: isDebug,
	})
}

func (ns *NotificationService) HandleRemoteNotification(ctx context.Context) error {
	if ns.syncSvc == nil {
		return nil
	}
	return ns.syncSvc.HandleRemoteNotification(ctx)
}

func (ns *NotificationService) GetSyncEventChannel(
	_ context.Context,
) (<-chan domain.SyncEvent, error) {
	if ns.syncSvc == nil {
		return nil, fmt.Errorf("sync service not available")
	}
	return ns.syncSvc.GetEventChannel(), nil
}
